package service

import (
	"context"
	"sync"
	"time"

	"campaignhub/internal/lock"
	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// callCounter tracks method calls; the dispatcher calls transports from
// several goroutines
type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) inc(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
	return c.calls[name]
}

func (c *callCounter) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// MockCampaignRepository mocks CampaignRepository
type MockCampaignRepository struct {
	callCounter
	CreateFunc   func(ctx context.Context, campaign *models.Campaign) error
	GetByIDFunc  func(ctx context.Context, id string) (*models.Campaign, error)
	MarkSentFunc func(ctx context.Context, id string, sentAt time.Time) error
}

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	m.inc("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, campaign)
	}
	return nil
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	m.inc("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *MockCampaignRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	m.inc("MarkSent")
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, sentAt)
	}
	return nil
}

// memoryCampaigns is a campaign store that honours the draft-only MarkSent
type memoryCampaigns struct {
	MockCampaignRepository
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
}

func newMemoryCampaigns(campaigns ...*models.Campaign) *memoryCampaigns {
	m := &memoryCampaigns{campaigns: make(map[string]*models.Campaign)}
	for _, c := range campaigns {
		m.campaigns[c.ID] = c
	}
	m.GetByIDFunc = func(ctx context.Context, id string) (*models.Campaign, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		c, ok := m.campaigns[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		copied := *c
		return &copied, nil
	}
	m.MarkSentFunc = func(ctx context.Context, id string, sentAt time.Time) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		c, ok := m.campaigns[id]
		if !ok || c.Status != models.CampaignStatusDraft {
			return repository.ErrStatusConflict
		}
		c.Status = models.CampaignStatusSent
		c.SentAt = &sentAt
		return nil
	}
	return m
}

func (m *memoryCampaigns) get(id string) *models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *m.campaigns[id]
	return &copied
}

// MockCustomerRepository mocks CustomerRepository
type MockCustomerRepository struct {
	callCounter
	CreateFunc         func(ctx context.Context, customer *models.Customer) error
	QueryCustomersFunc func(ctx context.Context, filter repository.CustomerFilter) ([]*models.Customer, error)

	filterMu   sync.Mutex
	LastFilter repository.CustomerFilter
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	m.inc("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, customer)
	}
	return nil
}

func (m *MockCustomerRepository) QueryCustomers(ctx context.Context, filter repository.CustomerFilter) ([]*models.Customer, error) {
	m.inc("QueryCustomers")
	m.filterMu.Lock()
	m.LastFilter = filter
	m.filterMu.Unlock()
	if m.QueryCustomersFunc != nil {
		return m.QueryCustomersFunc(ctx, filter)
	}
	return nil, nil
}

// sentMessage records one transport call
type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockTransport implements both EmailTransport and SMSTransport
type MockTransport struct {
	callCounter
	// FailOn makes the nth call (1-based, across both channels) fail
	FailOn map[int]error
	Delay  time.Duration

	mu   sync.Mutex
	seq  int
	Sent []sentMessage
}

func (m *MockTransport) record(ctx context.Context, name string, msg sentMessage) error {
	m.inc(name)

	m.mu.Lock()
	m.seq++
	n := m.seq
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if err, ok := m.FailOn[n]; ok {
		return err
	}
	return nil
}

func (m *MockTransport) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return m.record(ctx, "SendEmail", sentMessage{To: to, Subject: subject, Body: htmlBody})
}

func (m *MockTransport) SendSMS(ctx context.Context, to, body string) error {
	return m.record(ctx, "SendSMS", sentMessage{To: to, Body: body})
}

func (m *MockTransport) Bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		bodies = append(bodies, s.Body)
	}
	return bodies
}

// MockLocker hands out locks that share one held flag per key
type MockLocker struct {
	callCounter
	mu         sync.Mutex
	held       map[string]bool
	AcquireErr error
	// LeaseTTL > 0 hands out expiring locks that must be extended
	LeaseTTL time.Duration
}

func (m *MockLocker) NewLock(key string) lock.DistLock {
	m.inc("NewLock")
	if m.LeaseTTL > 0 {
		return &mockLeaseLock{mockLock: mockLock{locker: m, key: key}}
	}
	return &mockLock{locker: m, key: key}
}

type mockLeaseLock struct {
	mockLock
}

func (l *mockLeaseLock) Extend(ctx context.Context) (bool, error) {
	l.locker.inc("Extend")
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	return l.locker.held[l.key], nil
}

func (l *mockLeaseLock) TTL() time.Duration {
	return l.locker.LeaseTTL
}

type mockLock struct {
	locker *MockLocker
	key    string
}

func (l *mockLock) Acquire(ctx context.Context) (bool, error) {
	l.locker.inc("Acquire")
	if l.locker.AcquireErr != nil {
		return false, l.locker.AcquireErr
	}
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if l.locker.held == nil {
		l.locker.held = make(map[string]bool)
	}
	if l.locker.held[l.key] {
		return false, nil
	}
	l.locker.held[l.key] = true
	return true, nil
}

func (l *mockLock) Release(ctx context.Context) error {
	l.locker.inc("Release")
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

// MockPublisher mocks JobPublisher
type MockPublisher struct {
	callCounter
	PublishFunc func(ctx context.Context, job *models.DispatchJob) error
	Jobs        []*models.DispatchJob
}

func (m *MockPublisher) PublishDispatch(ctx context.Context, job *models.DispatchJob) error {
	m.inc("PublishDispatch")
	m.Jobs = append(m.Jobs, job)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, job)
	}
	return nil
}

// Test fixtures

func strPtr(s string) *string {
	return &s
}

func newTestCampaign(id string, channel models.Channel) *models.Campaign {
	now := time.Now()
	c := &models.Campaign{
		ID:            id,
		Name:          "Festive sale",
		Channel:       channel,
		TargetSegment: models.SegmentAll,
		Content:       "Hi {{name}}, sale now!",
		Status:        models.CampaignStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if channel == models.ChannelEmail {
		c.SubjectLine = strPtr("Festive sale")
	}
	return c
}

func newTestCustomers(n int) []*models.Customer {
	customers := make([]*models.Customer, n)
	for i := range customers {
		id := i + 1
		customers[i] = &models.Customer{
			ID:          id,
			Name:        strPtr("Customer " + string(rune('A'+i))),
			Email:       strPtr("c" + string(rune('a'+i)) + "@shop.test"),
			Mobile:      strPtr("+1555000000" + string(rune('0'+i%10))),
			TotalOrders: id,
		}
	}
	return customers
}

func allCredentials() Credentials {
	return Credentials{
		EmailAPIKey:   "re_test",
		SMSAccountID:  "AC1",
		SMSAuthToken:  "token",
		SMSFromNumber: "+15550000000",
	}
}
