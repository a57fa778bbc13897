package club

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	model "github.com/glkeru/vipclub/internal/models"
)

// In-memory хранилища для тестов сервисов: повторяют семантику db слоя,
// включая атомарность счет+журнал и идемпотентность rollover/reset

type fakeCreditStorage struct {
	mu       sync.Mutex
	accounts map[string]*model.CreditAccount
	tnxs     []model.CreditTransaction
	failFor  map[string]error // принудительные ошибки по пользователям
}

func newFakeCreditStorage() *fakeCreditStorage {
	return &fakeCreditStorage{
		accounts: make(map[string]*model.CreditAccount),
		failFor:  make(map[string]error),
	}
}

func (f *fakeCreditStorage) Assign(ctx context.Context, user string, limit decimal.Decimal, assignedBy string, notes string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		acc = &model.CreditAccount{
			UUID:       uuid.New(),
			User:       user,
			Limit:      limit,
			Balance:    limit,
			Used:       decimal.Zero,
			Active:     true,
			AssignedBy: assignedBy,
			AssignedAt: time.Now(),
			Notes:      notes,
		}
		f.accounts[user] = acc
		return *acc, nil
	}
	if err := acc.SetLimit(limit); err != nil {
		return model.CreditAccount{}, err
	}
	acc.Active = true
	acc.AssignedBy = assignedBy
	acc.Notes = notes
	return *acc, nil
}

func (f *fakeCreditStorage) Charge(ctx context.Context, user string, amount decimal.Decimal, orderId string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[user]; ok {
		return model.CreditAccount{}, err
	}
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	if err := acc.Charge(amount); err != nil {
		return model.CreditAccount{}, err
	}
	f.tnxs = append(f.tnxs, model.CreditTransaction{
		UUID: uuid.New(), User: user, OrderID: orderId, Amount: amount,
		TypeTnx: model.TnxPurchase, CreatedAt: time.Now(),
	})
	return *acc, nil
}

func (f *fakeCreditStorage) Reset(ctx context.Context, user string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[user]; ok {
		return model.CreditAccount{}, err
	}
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	if acc.ResetCycle(time.Now()) {
		f.tnxs = append(f.tnxs, model.CreditTransaction{
			UUID: uuid.New(), User: user, Amount: acc.Limit,
			TypeTnx: model.TnxReset, CreatedAt: time.Now(),
		})
	}
	return *acc, nil
}

func (f *fakeCreditStorage) Adjust(ctx context.Context, user string, delta decimal.Decimal, description string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	if err := acc.Adjust(delta); err != nil {
		return model.CreditAccount{}, err
	}
	f.tnxs = append(f.tnxs, model.CreditTransaction{
		UUID: uuid.New(), User: user, Amount: delta, Description: description,
		TypeTnx: model.TnxAdjustment, CreatedAt: time.Now(),
	})
	return *acc, nil
}

func (f *fakeCreditStorage) SetDueDate(ctx context.Context, user string, policy string, date time.Time) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	acc.DuePolicy = policy
	acc.DueDate = &date
	return *acc, nil
}

func (f *fakeCreditStorage) Deactivate(ctx context.Context, user string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	acc.Active = false
	return *acc, nil
}

func (f *fakeCreditStorage) Get(ctx context.Context, user string) (model.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		return model.CreditAccount{}, model.ErrNotFound
	}
	return *acc, nil
}

func (f *fakeCreditStorage) List(ctx context.Context) (accs []model.CreditAccount, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		accs = append(accs, *acc)
	}
	return accs, nil
}

func (f *fakeCreditStorage) ListResetDue(ctx context.Context, cycleStart time.Time) (users []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for user, acc := range f.accounts {
		if acc.Active && (acc.LastReset.IsZero() || acc.LastReset.Before(cycleStart)) {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (f *fakeCreditStorage) Transactions(ctx context.Context, user string) (tnxs []model.CreditTransaction, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tnxs) - 1; i >= 0; i-- {
		if f.tnxs[i].User == user {
			tnxs = append(tnxs, f.tnxs[i])
		}
	}
	return tnxs, nil
}

type fakePointsStorage struct {
	mu       sync.Mutex
	accounts map[string]*model.PointsAccount
	history  []model.PointsHistoryEntry
	failFor  map[string]error
}

func newFakePointsStorage() *fakePointsStorage {
	return &fakePointsStorage{
		accounts: make(map[string]*model.PointsAccount),
		failFor:  make(map[string]error),
	}
}

func (f *fakePointsStorage) Earn(ctx context.Context, user string, points int64, orderId string, reason string, cfg model.ClubConfig) (model.PointsAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	acc, ok := f.accounts[user]
	if !ok {
		acc = &model.PointsAccount{
			UUID: uuid.New(), User: user,
			Total: points, Monthly: points,
			Month: int(now.Month()), Year: now.Year(),
			Level:     cfg.LevelFor(points),
			CreatedAt: now, UpdatedAt: now,
		}
		f.accounts[user] = acc
	} else {
		acc.Total += points
		acc.Monthly += points
		acc.Level = cfg.LevelFor(acc.Monthly)
		acc.UpdatedAt = now
	}
	f.history = append(f.history, model.PointsHistoryEntry{
		UUID: uuid.New(), User: user, OrderID: orderId, Points: points, Reason: reason, CreatedAt: now,
	})
	return *acc, nil
}

func (f *fakePointsStorage) Rollover(ctx context.Context, user string, now time.Time, cfg model.ClubConfig) (model.PointsAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[user]; ok {
		return model.PointsAccount{}, err
	}
	acc, ok := f.accounts[user]
	if !ok {
		return model.PointsAccount{}, model.ErrNotFound
	}
	if acc.Month == int(now.Month()) && acc.Year == now.Year() {
		return *acc, nil
	}
	acc.Monthly = 0
	acc.Month = int(now.Month())
	acc.Year = now.Year()
	acc.Level = cfg.LevelFor(0)
	acc.UpdatedAt = now
	return *acc, nil
}

func (f *fakePointsStorage) Get(ctx context.Context, user string) (model.PointsAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[user]
	if !ok {
		return model.PointsAccount{}, model.ErrNotFound
	}
	return *acc, nil
}

func (f *fakePointsStorage) Top(ctx context.Context, limit int) (accs []model.PointsAccount, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		accs = append(accs, *acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].Monthly != accs[j].Monthly {
			return accs[i].Monthly > accs[j].Monthly
		}
		return accs[i].UpdatedAt.Before(accs[j].UpdatedAt)
	})
	if len(accs) > limit {
		accs = accs[:limit]
	}
	return accs, nil
}

func (f *fakePointsStorage) Users(ctx context.Context) (users []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for user := range f.accounts {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

func (f *fakePointsStorage) History(ctx context.Context, user string) (entries []model.PointsHistoryEntry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].User == user {
			entries = append(entries, f.history[i])
		}
	}
	return entries, nil
}

type fakeWinnerStorage struct {
	mu      sync.Mutex
	winners []model.MonthlyWinner
}

func (f *fakeWinnerStorage) Exists(ctx context.Context, month int, year int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.winners {
		if w.Month == month && w.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWinnerStorage) Create(ctx context.Context, winners []model.MonthlyWinner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners = append(f.winners, winners...)
	return nil
}

func (f *fakeWinnerStorage) List(ctx context.Context, month int, year int) (winners []model.MonthlyWinner, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.winners {
		if w.Month == month && w.Year == year {
			winners = append(winners, w)
		}
	}
	return winners, nil
}
