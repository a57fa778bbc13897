package club

import (
	"fmt"
	"strconv"
	"time"

	model "github.com/glkeru/vipclub/internal/models"
)

// Расчет даты платежа по токену политики:
// "ultimo" - последний календарный день месяца
// "habil"  - первый рабочий день следующего месяца
// "N" 1..31 - N-е число текущего месяца, если оно еще не прошло, иначе следующего
func ResolveDueDate(policy string, ref time.Time) (time.Time, error) {
	switch policy {
	case "ultimo":
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return first.AddDate(0, 1, -1), nil
	case "habil":
		day := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		return day, nil
	}

	n, err := strconv.Atoi(policy)
	if err != nil || n < 1 || n > 31 {
		return time.Time{}, fmt.Errorf("policy %q: %w", policy, model.ErrInvalidDuePolicy)
	}

	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	due := dayOfMonth(ref.Year(), ref.Month(), n, ref.Location())
	if due.Before(today) {
		next := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
		due = dayOfMonth(next.Year(), next.Month(), n, ref.Location())
	}
	return due, nil
}

// N-е число месяца, в коротких месяцах - последний день
func dayOfMonth(year int, month time.Month, n int, loc *time.Location) time.Time {
	last := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, -1).Day()
	if n > last {
		n = last
	}
	return time.Date(year, month, n, 0, 0, 0, 0, loc)
}
