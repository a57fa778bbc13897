package club

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Виды призов
const (
	PrizeMoney    = "MONEY"
	PrizePhysical = "PHYSICAL"
)

// Приз за место в месячном рейтинге: деньги или физический предмет
type Prize struct {
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Description string          `json:"description"`
	ImageRef    string          `json:"imageRef,omitempty"`
}

// Сериализация в текстовую колонку club_config
func (p Prize) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodePrize(raw string) (p Prize, err error) {
	if raw == "" {
		return Prize{}, nil
	}
	err = json.Unmarshal([]byte(raw), &p)
	if err != nil {
		return Prize{}, err
	}
	switch p.Kind {
	case "", PrizeMoney, PrizePhysical:
		return p, nil
	}
	return Prize{}, fmt.Errorf("unknown prize kind: %s", p.Kind)
}
