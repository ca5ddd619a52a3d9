package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/rs/zerolog/log"
)

// Repository defines what the ledger needs from the persistent store.
type Repository interface {
	GetBalance(ctx context.Context, userID string, gameID uuid.UUID) (money int, found bool, err error)
	UpsertBalance(ctx context.Context, userID string, gameID uuid.UUID, money int) error
}

type balanceKey struct {
	userID string
	gameID uuid.UUID
}

// App is the money ledger. Server memory is authoritative for balances while
// a game is live; the repository is write-behind. Every mutation goes through
// Debit/Credit/GrantAnnualIncome so the non-negative invariant is enforced in
// one place.
type App struct {
	repo            Repository
	publisher       events.Publisher
	startingBalance int

	mu       sync.Mutex
	balances map[balanceKey]int
}

// NewApp creates a ledger app. New (userID, gameID) pairs start at
// startingBalance unless the repository already holds a balance for them.
func NewApp(repo Repository, publisher events.Publisher, startingBalance int) *App {
	return &App{
		repo:            repo,
		publisher:       publisher,
		startingBalance: startingBalance,
		balances:        make(map[balanceKey]int),
	}
}

// GetBalance returns the current balance, loading it from the store on first
// access for the pair.
func (a *App) GetBalance(ctx context.Context, userID string, gameID uuid.UUID) int {
	a.ensureLoaded(ctx, userID, gameID)

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[balanceKey{userID, gameID}]
}

// Debit withdraws amount. It returns false and mutates nothing if funds are
// insufficient; there is no partial debit. A non-positive amount is rejected.
func (a *App) Debit(ctx context.Context, userID string, gameID uuid.UUID, amount int) bool {
	if amount <= 0 {
		return amount == 0
	}

	a.ensureLoaded(ctx, userID, gameID)

	a.mu.Lock()
	current := a.balances[balanceKey{userID, gameID}]
	if current < amount {
		a.mu.Unlock()
		return false
	}
	newMoney := current - amount
	a.balances[balanceKey{userID, gameID}] = newMoney
	a.mu.Unlock()

	a.persist(ctx, userID, gameID, newMoney)
	a.notify(gameID, userID, newMoney)
	return true
}

// Credit deposits amount, used both for income and compensating refunds.
func (a *App) Credit(ctx context.Context, userID string, gameID uuid.UUID, amount int) {
	if amount <= 0 {
		return
	}

	a.ensureLoaded(ctx, userID, gameID)

	a.mu.Lock()
	newMoney := a.balances[balanceKey{userID, gameID}] + amount
	a.balances[balanceKey{userID, gameID}] = newMoney
	a.mu.Unlock()

	a.persist(ctx, userID, gameID, newMoney)
	a.notify(gameID, userID, newMoney)
}

// GrantAnnualIncome credits the yearly stipend, invoked once per simulated
// year boundary by the session clock.
func (a *App) GrantAnnualIncome(ctx context.Context, userID string, gameID uuid.UUID, amount int) {
	log.Info().
		Str("user_id", userID).
		Str("game_id", gameID.String()).
		Int("amount", amount).
		Msg("granting annual income")
	a.Credit(ctx, userID, gameID, amount)
}

// ensureLoaded makes the in-memory balance for the pair resident, falling
// back to the store and then to the starting balance. The store read runs
// outside a.mu so one slow load cannot stall mutations for unrelated pairs;
// when two handlers race on the same first access, the first insert wins.
func (a *App) ensureLoaded(ctx context.Context, userID string, gameID uuid.UUID) {
	key := balanceKey{userID, gameID}
	a.mu.Lock()
	_, ok := a.balances[key]
	a.mu.Unlock()
	if ok {
		return
	}

	money := a.startingBalance
	if a.repo != nil {
		stored, found, err := a.repo.GetBalance(ctx, userID, gameID)
		if err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("game_id", gameID.String()).
				Msg("failed to load balance, using starting balance")
		} else if found {
			money = stored
		}
	}

	a.mu.Lock()
	if _, ok := a.balances[key]; !ok {
		a.balances[key] = money
	}
	a.mu.Unlock()
}

// persist writes the balance behind the in-memory mutation. A failed write is
// an accepted inconsistency window until the next successful one; memory
// stays authoritative.
func (a *App) persist(ctx context.Context, userID string, gameID uuid.UUID, money int) {
	if a.repo == nil {
		return
	}
	if err := a.repo.UpsertBalance(ctx, userID, gameID, money); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("game_id", gameID.String()).
			Int("money", money).
			Msg("failed to persist balance")
	}
}

// notify unicasts the new balance to the affected user's connections.
func (a *App) notify(gameID uuid.UUID, userID string, newMoney int) {
	if a.publisher == nil {
		return
	}
	evt, err := events.New(gameID, events.ChannelGame, events.EventTypeMoneyUpdated, events.MoneyUpdatedPayload{
		UserID:   userID,
		NewMoney: newMoney,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build money update event")
		return
	}
	evt.UserID = userID
	a.publisher.Publish(evt)
}
