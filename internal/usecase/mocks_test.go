package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

type mockPendingRepo struct {
	createErr   error
	createCalls int
	created     domain.PendingRegistration

	getResult *domain.PendingRegistration
	getErr    error
	getCalls  int
	getLastID string

	liveEmailResult *domain.PendingRegistration
	liveEmailErr    error
	liveEmailCalls  int
	liveEmailLast   string

	liveUsernameResult *domain.PendingRegistration
	liveUsernameErr    error
	liveUsernameCalls  int
	liveUsernameLast   string

	assignedExistsResult bool
	assignedExistsErr    error
	assignedExistsCalls  int

	markExpiredErr    error
	markExpiredCalls  int
	markExpiredLastID string

	deleteErr    error
	deleteCalls  int
	deleteLastID string
}

func (m *mockPendingRepo) Create(_ context.Context, pending domain.PendingRegistration) error {
	m.createCalls++
	m.created = pending
	return m.createErr
}

// GetByID serves a configured row first, then falls back to the row captured
// by Create so flows that look up a registration they just made still work.
func (m *mockPendingRepo) GetByID(_ context.Context, id string) (*domain.PendingRegistration, error) {
	m.getCalls++
	m.getLastID = id
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getResult != nil {
		copy := *m.getResult
		return &copy, nil
	}
	if m.createCalls > 0 && m.created.ID == id {
		copy := m.created
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockPendingRepo) FindLiveByEmail(_ context.Context, email string, _ time.Time) (*domain.PendingRegistration, error) {
	m.liveEmailCalls++
	m.liveEmailLast = email
	if m.liveEmailErr != nil {
		return nil, m.liveEmailErr
	}
	if m.liveEmailResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.liveEmailResult
	return &copy, nil
}

func (m *mockPendingRepo) FindLiveByUsername(_ context.Context, username string, _ time.Time) (*domain.PendingRegistration, error) {
	m.liveUsernameCalls++
	m.liveUsernameLast = username
	if m.liveUsernameErr != nil {
		return nil, m.liveUsernameErr
	}
	if m.liveUsernameResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.liveUsernameResult
	return &copy, nil
}

func (m *mockPendingRepo) AssignedIDExists(_ context.Context, _ string) (bool, error) {
	m.assignedExistsCalls++
	return m.assignedExistsResult, m.assignedExistsErr
}

func (m *mockPendingRepo) MarkExpired(_ context.Context, id string) error {
	m.markExpiredCalls++
	m.markExpiredLastID = id
	return m.markExpiredErr
}

func (m *mockPendingRepo) Delete(_ context.Context, id string) error {
	m.deleteCalls++
	m.deleteLastID = id
	return m.deleteErr
}

func (m *mockPendingRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("unexpected call: DeleteExpired")
}

type mockCodeRepo struct {
	createErr   error
	createCalls int
	created     domain.VerificationCode

	latestPendingResult *domain.VerificationCode
	latestPendingErr    error
	latestPendingCalls  int

	latestAccountResult *domain.VerificationCode
	latestAccountErr    error
	latestAccountCalls  int

	deleteForPendingErr    error
	deleteForPendingCalls  int
	deleteForPendingLastID string

	deleteForAccountErr    error
	deleteForAccountCalls  int
	deleteForAccountLastID string

	incrementErr    error
	incrementResult int
	incrementCalls  int
	incrementLastID string
}

func (m *mockCodeRepo) Create(_ context.Context, code domain.VerificationCode) error {
	m.createCalls++
	m.created = code
	return m.createErr
}

func (m *mockCodeRepo) LatestForPending(_ context.Context, _ string) (*domain.VerificationCode, error) {
	m.latestPendingCalls++
	if m.latestPendingErr != nil {
		return nil, m.latestPendingErr
	}
	if m.latestPendingResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.latestPendingResult
	return &copy, nil
}

func (m *mockCodeRepo) LatestForAccount(_ context.Context, _ string) (*domain.VerificationCode, error) {
	m.latestAccountCalls++
	if m.latestAccountErr != nil {
		return nil, m.latestAccountErr
	}
	if m.latestAccountResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.latestAccountResult
	return &copy, nil
}

func (m *mockCodeRepo) DeleteForPending(_ context.Context, pendingID string) (int64, error) {
	m.deleteForPendingCalls++
	m.deleteForPendingLastID = pendingID
	return 0, m.deleteForPendingErr
}

func (m *mockCodeRepo) DeleteForAccount(_ context.Context, accountID string) (int64, error) {
	m.deleteForAccountCalls++
	m.deleteForAccountLastID = accountID
	return 0, m.deleteForAccountErr
}

func (m *mockCodeRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	m.incrementCalls++
	m.incrementLastID = id
	return m.incrementResult, m.incrementErr
}

func (m *mockCodeRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("unexpected call: DeleteExpired")
}

type mockAccountRepo struct {
	getResult *domain.Account
	getErr    error
	getCalls  int
	getLastID string

	findResult *domain.Account
	findErr    error
	findCalls  int
	findLast   string

	existsUsernameResult bool
	existsUsernameErr    error
	existsUsernameCalls  int
	existsUsernameLast   string

	existsEmailResult bool
	existsEmailErr    error
	existsEmailCalls  int
	existsEmailLast   string

	// assignedCollisions makes the first N existence checks report the
	// candidate as taken before freeing one up.
	assignedCollisions  int
	assignedExistsErr   error
	assignedExistsCalls int

	setVerifiedErr    error
	setVerifiedCalls  int
	setVerifiedLastID string

	promoteErr           error
	promoteCalls         int
	promoteLastPendingID string
	promotedAccount      domain.Account
}

func (m *mockAccountRepo) Create(context.Context, domain.Account) error {
	return errors.New("unexpected call: Create")
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.getCalls++
	m.getLastID = id
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.getResult
	return &copy, nil
}

func (m *mockAccountRepo) FindByUsernameOrEmail(_ context.Context, identifier string) (*domain.Account, error) {
	m.findCalls++
	m.findLast = identifier
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.findResult == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.findResult
	return &copy, nil
}

func (m *mockAccountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.existsUsernameCalls++
	m.existsUsernameLast = username
	return m.existsUsernameResult, m.existsUsernameErr
}

func (m *mockAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.existsEmailCalls++
	m.existsEmailLast = email
	return m.existsEmailResult, m.existsEmailErr
}

func (m *mockAccountRepo) AssignedIDExists(_ context.Context, _ string) (bool, error) {
	m.assignedExistsCalls++
	if m.assignedExistsErr != nil {
		return false, m.assignedExistsErr
	}
	if m.assignedExistsCalls <= m.assignedCollisions {
		return true, nil
	}
	return false, nil
}

func (m *mockAccountRepo) SetVerified(_ context.Context, id string) error {
	m.setVerifiedCalls++
	m.setVerifiedLastID = id
	return m.setVerifiedErr
}

func (m *mockAccountRepo) PromotePending(_ context.Context, pendingID string, account domain.Account) error {
	m.promoteCalls++
	m.promoteLastPendingID = pendingID
	m.promotedAccount = account
	return m.promoteErr
}

// memoryThrottle is an in-process sliding-window store so throttle behavior
// can be exercised without Redis. Error fields inject store outages.
type memoryThrottle struct {
	attempts map[string][]time.Time

	trimErr   error
	countErr  error
	recordErr error
	oldestErr error
	resetErr  error

	recordCalls int
	resetCalls  int
}

func newMemoryThrottle() *memoryThrottle {
	return &memoryThrottle{attempts: make(map[string][]time.Time)}
}

func (m *memoryThrottle) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if m.trimErr != nil {
		return m.trimErr
	}
	cutoff := reference.Add(-window)
	kept := m.attempts[identifier][:0]
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *memoryThrottle) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *memoryThrottle) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.recordCalls++
	if m.recordErr != nil {
		return m.recordErr
	}
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *memoryThrottle) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if m.oldestErr != nil {
		return time.Time{}, false, m.oldestErr
	}
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if !at.After(cutoff) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func (m *memoryThrottle) Reset(_ context.Context, identifier string) error {
	m.resetCalls++
	if m.resetErr != nil {
		return m.resetErr
	}
	delete(m.attempts, identifier)
	return nil
}

type mockDispatcher struct {
	codeErr      error
	codeCalls    int
	codeEmail    string
	codeUsername string
	codeValue    string

	welcomeErr   error
	welcomeCalls int
	welcomeEmail string
}

func (m *mockDispatcher) SendVerificationCode(_ context.Context, email, username, code string) error {
	m.codeCalls++
	m.codeEmail = email
	m.codeUsername = username
	m.codeValue = code
	return m.codeErr
}

func (m *mockDispatcher) SendWelcome(_ context.Context, email, _ string) error {
	m.welcomeCalls++
	m.welcomeEmail = email
	return m.welcomeErr
}

type mockPublisher struct {
	startedErr   error
	startedCalls int
	startedEvent domain.RegistrationStartedEvent

	registeredErr   error
	registeredCalls int
	registeredEvent domain.AccountRegisteredEvent

	verifiedErr   error
	verifiedCalls int
	verifiedEvent domain.AccountVerifiedEvent
}

func (m *mockPublisher) PublishRegistrationStarted(_ context.Context, event domain.RegistrationStartedEvent) error {
	m.startedCalls++
	m.startedEvent = event
	return m.startedErr
}

func (m *mockPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	m.registeredCalls++
	m.registeredEvent = event
	return m.registeredErr
}

func (m *mockPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	m.verifiedCalls++
	m.verifiedEvent = event
	return m.verifiedErr
}

type stubPasswordPolicy struct {
	err error
}

func (p stubPasswordPolicy) Validate(string, domain.PasswordContext) error {
	return p.err
}

// serviceMocks bundles the collaborators the verification lifecycle touches.
type serviceMocks struct {
	pendings   *mockPendingRepo
	codes      *mockCodeRepo
	accounts   *mockAccountRepo
	throttle   *memoryThrottle
	dispatcher *mockDispatcher
	events     *mockPublisher
}

func newServiceMocks() *serviceMocks {
	return &serviceMocks{
		pendings:   &mockPendingRepo{},
		codes:      &mockCodeRepo{},
		accounts:   &mockAccountRepo{},
		throttle:   newMemoryThrottle(),
		dispatcher: &mockDispatcher{},
		events:     &mockPublisher{},
	}
}

func newTestVerificationService(m *serviceMocks) *VerificationService {
	return NewVerificationService(nil, m.pendings, m.codes, m.accounts, m.throttle, m.dispatcher, m.events, zap.NewNop())
}

func newTestTokenIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()

	issuer, err := security.NewTokenIssuer("unit-test-signing-secret", "swapsavvy-api", 15*time.Minute, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	return issuer
}

func newTestAuthConfig() *config.AppConfig {
	return &config.AppConfig{
		JWT: config.JWTSettings{
			Secret:         "unit-test-signing-secret",
			Issuer:         "swapsavvy-api",
			AccessTokenTTL: 15 * time.Minute,
		},
	}
}
