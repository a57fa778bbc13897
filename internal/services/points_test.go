package club

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	model "github.com/glkeru/vipclub/internal/models"
)

func testConfig() model.ClubConfig {
	return model.ClubConfig{
		PointsPerDollar:   decimal.NewFromInt(1),
		FirstPrize:        decimal.NewFromInt(300),
		SecondPrize:       decimal.NewFromInt(200),
		ThirdPrize:        decimal.NewFromInt(100),
		BronzeThreshold:   0,
		SilverThreshold:   100,
		GoldThreshold:     500,
		PlatinumThreshold: 1000,
		MonthlyResetDay:   1,
	}
}

func TestEarn(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	config := NewMockConfigStorage(cont)
	config.EXPECT().Get(gomock.Any()).Return(testConfig(), nil).AnyTimes()

	storage := newFakePointsStorage()
	serv := NewPointsService(zap.NewNop(), storage, config, nil)
	ctx := context.Background()

	// floor(120.75 * 1) = 120
	acc, err := serv.Earn(ctx, "user1", decimal.NewFromFloat(120.75), "order1")
	require.NoError(t, err)
	require.Equal(t, int64(120), acc.Monthly)
	require.Equal(t, int64(120), acc.Total)
	require.Equal(t, model.LevelSilver, acc.Level)

	// накопление на существующем счете
	acc, err = serv.Earn(ctx, "user1", decimal.NewFromInt(400), "order2")
	require.NoError(t, err)
	require.Equal(t, int64(520), acc.Monthly)
	require.Equal(t, int64(520), acc.Total)
	require.Equal(t, model.LevelGold, acc.Level)

	history, err := serv.History(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "order purchase", history[0].Reason)
}

func TestEarnFractionalRate(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	cfg := testConfig()
	cfg.PointsPerDollar = decimal.NewFromFloat(0.5)
	config := NewMockConfigStorage(cont)
	config.EXPECT().Get(gomock.Any()).Return(cfg, nil).AnyTimes()

	serv := NewPointsService(zap.NewNop(), newFakePointsStorage(), config, nil)

	// floor(99 * 0.5) = 49
	acc, err := serv.Earn(context.Background(), "user1", decimal.NewFromInt(99), "order1")
	require.NoError(t, err)
	require.Equal(t, int64(49), acc.Monthly)
}

func TestEarnInvalidTotal(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	config := NewMockConfigStorage(cont)

	storage := newFakePointsStorage()
	serv := NewPointsService(zap.NewNop(), storage, config, nil)

	_, err := serv.Earn(context.Background(), "user1", decimal.Zero, "order1")
	require.ErrorIs(t, err, model.ErrInvalidAmount)
	_, err = serv.Earn(context.Background(), "user1", decimal.NewFromInt(-5), "order2")
	require.ErrorIs(t, err, model.ErrInvalidAmount)
	require.Empty(t, storage.accounts)
}

func TestRolloverIdempotent(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	config := NewMockConfigStorage(cont)
	config.EXPECT().Get(gomock.Any()).Return(testConfig(), nil).AnyTimes()

	storage := newFakePointsStorage()
	serv := NewPointsService(zap.NewNop(), storage, config, nil)
	ctx := context.Background()

	_, err := serv.Earn(ctx, "user1", decimal.NewFromInt(700), "order1")
	require.NoError(t, err)

	// счет уже в текущем месяце - rollover ничего не меняет
	acc, err := serv.Rollover(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(700), acc.Monthly)
	require.Equal(t, int64(700), acc.Total)
	require.Equal(t, model.LevelGold, acc.Level)
}

func TestRolloverPastMonth(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	config := NewMockConfigStorage(cont)
	config.EXPECT().Get(gomock.Any()).Return(testConfig(), nil).AnyTimes()

	storage := newFakePointsStorage()
	serv := NewPointsService(zap.NewNop(), storage, config, nil)
	ctx := context.Background()

	_, err := serv.Earn(ctx, "user1", decimal.NewFromInt(700), "order1")
	require.NoError(t, err)

	// счет остался в прошлом месяце
	prev := prevMonth()
	storage.accounts["user1"].Month = int(prev.Month())
	storage.accounts["user1"].Year = prev.Year()

	acc, err := serv.Rollover(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(0), acc.Monthly)
	require.Equal(t, int64(700), acc.Total)
	require.Equal(t, model.LevelBronze, acc.Level)
}

func TestTopTieBreak(t *testing.T) {
	cont := gomock.NewController(t)
	defer cont.Finish()
	config := NewMockConfigStorage(cont)
	config.EXPECT().Get(gomock.Any()).Return(testConfig(), nil).AnyTimes()

	storage := newFakePointsStorage()
	serv := NewPointsService(zap.NewNop(), storage, config, nil)
	ctx := context.Background()

	// user2 набирает 200 раньше, чем user3
	_, err := serv.Earn(ctx, "user2", decimal.NewFromInt(200), "order1")
	require.NoError(t, err)
	_, err = serv.Earn(ctx, "user3", decimal.NewFromInt(200), "order2")
	require.NoError(t, err)
	_, err = serv.Earn(ctx, "user1", decimal.NewFromInt(300), "order3")
	require.NoError(t, err)
	storage.accounts["user2"].UpdatedAt = storage.accounts["user3"].UpdatedAt.Add(-time.Minute)

	top, err := serv.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "user1", top[0].User)
	require.Equal(t, "user2", top[1].User)
	require.Equal(t, "user3", top[2].User)
}
