package goSession

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/persist"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "laundry-test-secret-0123456789"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Gateway.MockLatency = 0
	cfg.Gateway.MockLogoutLatency = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildClient(t *testing.T, b *Builder) *Client {
	t.Helper()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func startedClient(t *testing.T, backend persist.Backend) *Client {
	t.Helper()
	c := buildClient(t, New().WithConfig(testConfig()).WithBackend(backend))
	if out := c.Start(context.Background()); out.Defaulted {
		t.Fatalf("unexpected defaulted start: %v", out.Err)
	}
	return c
}

// blockingGateway holds every Login until release is closed.
type blockingGateway struct {
	release chan struct{}
	calls   chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{release: make(chan struct{}), calls: make(chan struct{}, 8)}
}

func (g *blockingGateway) Login(ctx context.Context, creds gateway.Credentials) (*gateway.Grant, error) {
	g.calls <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &gateway.Grant{
		Token: "tok-" + creds.Email,
		User:  &session.User{ID: "u-1", Name: "Ada", Email: creds.Email, Role: "customer"},
	}, nil
}

func (g *blockingGateway) Logout(context.Context, string) error { return nil }

// slowBackend blocks reads until its context ends or unblock is closed.
type slowBackend struct {
	*persist.Memory
	unblock chan struct{}
}

func (s *slowBackend) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-s.unblock:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Memory.Get(ctx, key)
}

func TestOperationsBeforeStartReturnNotReady(t *testing.T) {
	c := buildClient(t, New().WithConfig(testConfig()))

	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Login before Start: expected ErrNotReady, got %v", err)
	}
	if err := c.Logout(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Logout before Start: expected ErrNotReady, got %v", err)
	}
	if err := c.Dispatch(context.Background(), session.Logout{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Dispatch before Start: expected ErrNotReady, got %v", err)
	}
	if got := c.Route(); got != RouteLoading {
		t.Fatalf("expected loading route, got %s", got)
	}
	if got := c.Phase(); got != PhasePending {
		t.Fatalf("expected pending phase, got %s", got)
	}
}

func TestStartWithEmptyStorageRoutesWelcome(t *testing.T) {
	c := startedClient(t, persist.NewMemory())

	if c.IsAuthenticated() {
		t.Fatal("expected anonymous session")
	}
	route, err := c.ResolveRoute(context.Background())
	if err != nil {
		t.Fatalf("ResolveRoute: %v", err)
	}
	if route != RouteWelcome {
		t.Fatalf("expected welcome, got %s", route)
	}
	if got := c.MetricsSnapshot().Counters[MetricRehydrateEmpty]; got != 1 {
		t.Fatalf("expected one empty rehydrate, got %d", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	c := startedClient(t, persist.NewMemory())
	first, _ := c.Outcome()
	second := c.Start(context.Background())
	if first.Phase != second.Phase || first.Defaulted != second.Defaulted {
		t.Fatalf("outcomes differ: %+v vs %+v", first, second)
	}
}

func TestLoginPersistsAndNextStartRestores(t *testing.T) {
	mem := persist.NewMemory()
	ctx := context.Background()

	first := startedClient(t, mem)
	res, err := first.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Session.IsAuthenticated || res.Session.Token == "" {
		t.Fatalf("expected authenticated session, got %+v", res.Session)
	}
	if res.User.Email != "ada@example.com" || res.User.Name != "Ada" {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected persisted slice, got %d keys", mem.Len())
	}

	second := startedClient(t, mem)
	if !second.IsAuthenticated() {
		t.Fatal("expected restored session")
	}
	if got := second.State().Token; got != res.Session.Token {
		t.Fatalf("restored token %q, want %q", got, res.Session.Token)
	}
	if got := second.User(); got == nil || got.ID != res.User.ID {
		t.Fatalf("restored user %+v, want id %q", got, res.User.ID)
	}
	if got := second.Route(); got != RouteHome {
		t.Fatalf("expected home route, got %s", got)
	}
	if got := second.MetricsSnapshot().Counters[MetricRehydrateRestored]; got != 1 {
		t.Fatalf("expected one restore, got %d", got)
	}
}

func TestLoginInvalidInputLeavesAnonymous(t *testing.T) {
	mem := persist.NewMemory()
	c := startedClient(t, mem)

	_, err := c.Login(context.Background(), "", "secret1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := DisplayMessage(err); got != "Email is required." {
		t.Fatalf("unexpected display message %q", got)
	}

	s := c.State()
	if s.IsAuthenticated || s.Loading || s.Token != "" {
		t.Fatalf("expected anonymous idle session, got %+v", s)
	}
	if mem.Len() != 0 {
		t.Fatal("nothing should be persisted on failure")
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginInvalidInput]; got != 1 {
		t.Fatalf("expected invalid-input metric, got %d", got)
	}
}

func TestLoginRejectedByGateway(t *testing.T) {
	mem := persist.NewMemory()
	c := startedClient(t, mem)

	_, err := c.Login(context.Background(), gateway.FailingEmail, "secret1")
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if c.IsAuthenticated() || c.Loading() {
		t.Fatalf("expected anonymous idle session, got %+v", c.State())
	}
	if mem.Len() != 0 {
		t.Fatal("nothing should be persisted on failure")
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected login failure metric, got %d", got)
	}
}

func TestLogoutClearsSessionAndStorage(t *testing.T) {
	mem := persist.NewMemory()
	ctx := context.Background()
	c := startedClient(t, mem)

	if _, err := c.Login(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	s := c.State()
	if s.IsAuthenticated || s.Token != "" || s.User != nil {
		t.Fatalf("expected cleared session, got %+v", s)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected storage cleared, got %d keys", mem.Len())
	}
	if got := c.Route(); got != RouteWelcome {
		t.Fatalf("expected welcome after logout, got %s", got)
	}

	again := startedClient(t, mem)
	if again.IsAuthenticated() {
		t.Fatal("logout must not be undone by the next start")
	}
}

func TestLogoutWhenAnonymousIsNoop(t *testing.T) {
	c := startedClient(t, persist.NewMemory())

	var transitions int
	cancel := c.Subscribe(func(prev, next session.Session, _ session.Action) { transitions++ })
	defer cancel()

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if got := c.MetricsSnapshot().Counters[MetricLogout]; got != 0 {
		t.Fatalf("anonymous logout must not count, got %d", got)
	}
	if transitions != 1 {
		t.Fatalf("expected the no-op transition to be observed once, got %d", transitions)
	}
}

func TestCorruptSnapshotIsPurgedAndDefaulted(t *testing.T) {
	mem := persist.NewMemory()
	cfg := testConfig()
	if err := mem.Set(context.Background(), cfg.Persist.Key, []byte{0xff, 0x00, 0x13}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := buildClient(t, New().WithConfig(cfg).WithBackend(mem))
	out := c.Start(context.Background())

	if !out.Defaulted {
		t.Fatal("expected defaulted outcome")
	}
	if !errors.Is(out.Err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", out.Err)
	}
	if out.Phase != PhaseRehydrated {
		t.Fatalf("expected rehydrated phase, got %s", out.Phase)
	}
	if c.IsAuthenticated() {
		t.Fatal("expected anonymous session")
	}
	if mem.Len() != 0 {
		t.Fatal("expected corrupt slice to be purged")
	}

	snap := c.MetricsSnapshot().Counters
	if snap[MetricRehydrateCorrupt] != 1 || snap[MetricRehydrateDefaulted] != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestUnreadableStorageStartsEmpty(t *testing.T) {
	mem := persist.NewMemory()
	mem.FailGet = errors.New("disk unplugged")

	c := startedClient(t, mem)
	if c.IsAuthenticated() {
		t.Fatal("expected anonymous session")
	}
	if got := c.Route(); got != RouteWelcome {
		t.Fatalf("expected welcome route, got %s", got)
	}
}

func TestRehydrationTimeoutDropsLateResult(t *testing.T) {
	mem := persist.NewMemory()
	cfg := testConfig()
	cfg.Rehydrate.Timeout = 20 * time.Millisecond

	// Seed a valid session through a first client.
	seed := startedClient(t, mem)
	if _, err := seed.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("seed login: %v", err)
	}

	slow := &slowBackend{Memory: mem, unblock: make(chan struct{})}
	c := buildClient(t, New().WithConfig(cfg).WithBackend(slow))

	out := c.Start(context.Background())
	if !out.Defaulted || !errors.Is(out.Err, ErrRehydrationTimeout) {
		t.Fatalf("expected timeout outcome, got %+v", out)
	}
	close(slow.unblock)

	if c.IsAuthenticated() {
		t.Fatal("late restore must not be applied")
	}
	if got := c.Route(); got != RouteWelcome {
		t.Fatalf("expected welcome route, got %s", got)
	}
	if got := c.MetricsSnapshot().Counters[MetricRehydrateTimeout]; got != 1 {
		t.Fatalf("expected timeout metric, got %d", got)
	}
}

func TestStartHonorsParentContext(t *testing.T) {
	slow := &slowBackend{Memory: persist.NewMemory(), unblock: make(chan struct{})}
	defer close(slow.unblock)
	c := buildClient(t, New().WithConfig(testConfig()).WithBackend(slow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := c.Start(ctx)
	if !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", out.Err)
	}
	if c.Phase() != PhaseRehydrated {
		t.Fatalf("gate must settle, got %s", c.Phase())
	}
}

func TestDoubleLoginIsRejectedWhileInFlight(t *testing.T) {
	gw := newBlockingGateway()
	c := buildClient(t, New().WithConfig(testConfig()).WithGateway(gw))
	c.Start(context.Background())

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Login(context.Background(), "ada@example.com", "secret1")
	}()
	<-gw.calls

	if !c.Loading() {
		t.Fatal("expected loading while the gateway is pending")
	}
	_, err := c.Login(context.Background(), "ada@example.com", "secret1")
	if !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("expected ErrLoginInProgress, got %v", err)
	}

	close(gw.release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first login: %v", firstErr)
	}
	if !c.IsAuthenticated() {
		t.Fatal("expected the first attempt to win")
	}
}

func TestLateLoginAfterLogoutIsDropped(t *testing.T) {
	mem := persist.NewMemory()
	gw := newBlockingGateway()
	c := buildClient(t, New().WithConfig(testConfig()).WithGateway(gw).WithBackend(mem))
	c.Start(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), "ada@example.com", "secret1")
		done <- err
	}()
	<-gw.calls

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(gw.release)

	if err := <-done; !errors.Is(err, ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("a result arriving after logout must not authenticate")
	}
	if mem.Len() != 0 {
		t.Fatal("a dropped result must not be persisted")
	}
}

func TestLoginSurvivesPersistWriteFailure(t *testing.T) {
	mem := persist.NewMemory()
	c := startedClient(t, mem)
	mem.FailSet = errors.New("quota exceeded")

	res, err := c.Login(context.Background(), "ada@example.com", "secret1")
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if res == nil || !res.Session.IsAuthenticated {
		t.Fatalf("expected result with authenticated session, got %+v", res)
	}
	if !c.IsAuthenticated() {
		t.Fatal("in-memory session stays authoritative")
	}
	if got := c.MetricsSnapshot().Counters[MetricPersistWriteFailure]; got != 1 {
		t.Fatalf("expected write-failure metric, got %d", got)
	}
}

func TestLogoutReportsDeleteFailure(t *testing.T) {
	mem := persist.NewMemory()
	c := startedClient(t, mem)
	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	mem.FailDelete = errors.New("read-only")

	err := c.Logout(context.Background())
	if !errors.Is(err, ErrStorageDelete) {
		t.Fatalf("expected ErrStorageDelete, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("logout must clear memory even when storage fails")
	}
}

func TestUpdateUserPersists(t *testing.T) {
	mem := persist.NewMemory()
	ctx := context.Background()
	c := startedClient(t, mem)

	if err := c.UpdateUser(ctx, session.User{ID: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("anonymous update: expected ErrInvalidTransition, got %v", err)
	}

	res, err := c.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	updated := res.User
	updated.Name = "Ada Lovelace"
	updated.Avatar = "https://cdn.example.com/ada.png"
	if err := c.UpdateUser(ctx, updated); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got := c.State().Token; got != res.Session.Token {
		t.Fatal("profile update must keep the token")
	}

	restored := startedClient(t, mem)
	if got := restored.User(); got == nil || got.Name != "Ada Lovelace" {
		t.Fatalf("expected updated profile after restart, got %+v", got)
	}
}

func TestEncryptedPersistenceHidesToken(t *testing.T) {
	mem := persist.NewMemory()
	cfg := testConfig()
	cfg.Persist.EncryptionSecret = []byte(testSecret)
	cfg.Persist.RequireEncryption = true

	c := buildClient(t, New().WithConfig(cfg).WithBackend(mem))
	c.Start(context.Background())
	res, err := c.Login(context.Background(), "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	raw, err := mem.Get(context.Background(), cfg.Persist.Key)
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if bytes.Contains(raw, []byte(res.Session.Token)) || bytes.Contains(raw, []byte("ada@example.com")) {
		t.Fatal("persisted slice must not contain plaintext")
	}

	restored := buildClient(t, New().WithConfig(cfg).WithBackend(mem))
	restored.Start(context.Background())
	if got := restored.State().Token; got != res.Session.Token {
		t.Fatalf("restored token %q, want %q", got, res.Session.Token)
	}

	wrong := cfg
	wrong.Persist.EncryptionSecret = []byte("another-secret-0123456789")
	other := buildClient(t, New().WithConfig(wrong).WithBackend(mem))
	out := other.Start(context.Background())
	if other.IsAuthenticated() {
		t.Fatal("a different secret must not restore the session")
	}
	if out.Phase != PhaseRehydrated {
		t.Fatalf("expected rehydrated phase, got %s", out.Phase)
	}
	if !out.Defaulted || !errors.Is(out.Err, ErrCorruptValue) {
		t.Fatalf("expected defaulted outcome with ErrCorruptValue, got defaulted=%v err=%v", out.Defaulted, out.Err)
	}
	if mem.Len() != 0 {
		t.Fatal("a slice sealed under another secret must be purged")
	}
	snap := other.MetricsSnapshot().Counters
	if snap[MetricRehydrateCorrupt] != 1 || snap[MetricRehydrateEmpty] != 0 || snap[MetricRehydrateDefaulted] != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestRedisPersistence(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	c := buildClient(t, New().WithConfig(cfg).WithRedis(rdb))
	c.Start(context.Background())
	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !mr.Exists(cfg.Persist.RedisPrefix + ":" + cfg.Persist.Key) {
		t.Fatal("expected session key in redis")
	}

	restored := buildClient(t, New().WithConfig(cfg).WithRedis(rdb))
	restored.Start(context.Background())
	if !restored.IsAuthenticated() {
		t.Fatal("expected restore from redis")
	}

	if err := restored.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if mr.Exists(cfg.Persist.RedisPrefix + ":" + cfg.Persist.Key) {
		t.Fatal("expected session key removed from redis")
	}
}

func TestSubscribeSeesLoginSequence(t *testing.T) {
	c := startedClient(t, persist.NewMemory())

	var kinds []session.Kind
	cancel := c.Subscribe(func(_, _ session.Session, a session.Action) {
		kinds = append(kinds, a.Kind())
	})
	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cancel()
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	want := []session.Kind{session.KindLoginStart, session.KindLoginSuccess}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got %v, want %v", kinds, want)
		}
	}
}

func TestInvalidDispatchIsCounted(t *testing.T) {
	c := startedClient(t, persist.NewMemory())

	err := c.Dispatch(context.Background(), session.LoginSuccess{Attempt: 7, Token: "t", User: &session.User{ID: "u"}})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := c.MetricsSnapshot().Counters[MetricInvalidTransition]; got != 1 {
		t.Fatalf("expected invalid-transition metric, got %d", got)
	}
}

func TestClosedClientRejectsOperations(t *testing.T) {
	c := startedClient(t, persist.NewMemory())
	c.Close()
	c.Close()

	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.Logout(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	sink := NewChannelSink(16)
	cfg := testConfig()
	cfg.Audit.Enabled = true

	c := buildClient(t, New().WithConfig(cfg).WithAuditSink(sink))
	c.Start(WithDeviceID(context.Background(), "pixel-7"))
	if _, err := c.Login(WithDeviceID(context.Background(), "pixel-7"), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	c.Close()

	var types []string
	for {
		select {
		case ev := <-sink.Events():
			if ev.DeviceID != "pixel-7" {
				t.Fatalf("expected device id on %s, got %q", ev.EventType, ev.DeviceID)
			}
			types = append(types, ev.EventType)
			continue
		default:
		}
		break
	}
	if len(types) != 2 || types[0] != auditEventRehydrate || types[1] != auditEventLoginSuccess {
		t.Fatalf("unexpected audit sequence %v", types)
	}
}

func TestRepeatedRejectionsAreThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.Throttle.MaxAttempts = 2
	c := buildClient(t, New().WithConfig(cfg))
	c.Start(context.Background())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Login(ctx, gateway.FailingEmail, "secret1"); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("attempt %d: expected ErrAuthenticationFailed, got %v", i, err)
		}
	}

	_, err := c.Login(ctx, "FAIL@test.com", "secret1")
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if c.Loading() {
		t.Fatal("a throttled login must not start an attempt")
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginThrottled]; got != 1 {
		t.Fatalf("expected throttled metric, got %d", got)
	}

	if _, err := c.Login(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("other emails keep their budget: %v", err)
	}
}

func TestInvalidInputDoesNotSpendAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Throttle.MaxAttempts = 1
	c := buildClient(t, New().WithConfig(cfg))
	c.Start(context.Background())

	for i := 0; i < 3; i++ {
		if _, err := c.Login(context.Background(), "ada@example.com", "abc"); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}
