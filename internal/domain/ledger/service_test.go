package ledger

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-api/internal/domain/wallet"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
)

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*Transaction
	creates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*Transaction)}
}

func cloneTx(tx *Transaction) *Transaction {
	cp := *tx
	cp.Metadata = Metadata{}
	for k, v := range tx.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

func (r *fakeRepo) Create(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	r.byID[tx.ID] = cloneTx(tx)
	return nil
}

func (r *fakeRepo) GetByReference(_ context.Context, reference string) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byID {
		if tx.Reference == reference {
			return cloneTx(tx), nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *fakeRepo) GetByAnyReference(_ context.Context, reference string) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byID {
		if tx.Reference == reference {
			return cloneTx(tx), nil
		}
		if tx.ProviderReference != nil && *tx.ProviderReference == reference {
			return cloneTx(tx), nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *fakeRepo) GetByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byID {
		if tx.UserID == userID && tx.Metadata.IdempotencyKey() == key {
			return cloneTx(tx), nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *fakeRepo) SetProviderReference(_ context.Context, id uuid.UUID, providerRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.byID[id]; ok {
		tx.ProviderReference = &providerRef
	}
	return nil
}

func (r *fakeRepo) MergeMetadata(_ context.Context, id uuid.UUID, patch Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.byID[id]; ok {
		for k, v := range patch {
			tx.Metadata[k] = v
		}
	}
	return nil
}

func (r *fakeRepo) CompleteIfPending(_ context.Context, id uuid.UUID, externalHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok || tx.Status != StatusPending {
		return false, nil
	}
	tx.Status = StatusCompleted
	if externalHash != "" {
		tx.ExternalHash = &externalHash
	}
	return true, nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok || tx.Status != StatusPending {
		return nil
	}
	tx.Status = StatusFailed
	tx.Metadata["error"] = reason
	return nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, tx := range r.byID {
		if tx.UserID == userID {
			out = append(out, *cloneTx(tx))
		}
	}
	return out, nil
}

type fakeWallets struct {
	mu          sync.Mutex
	wallets     map[string]*wallet.Wallet
	creditCalls int
	credited    float64
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{wallets: make(map[string]*wallet.Wallet)}
}

func (f *fakeWallets) GetOrCreate(_ context.Context, userID uuid.UUID, currency string) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID.String() + ":" + currency
	if w, ok := f.wallets[key]; ok {
		return w, nil
	}
	w := &wallet.Wallet{ID: uuid.New(), UserID: userID, Currency: currency}
	f.wallets[key] = w
	return w, nil
}

func (f *fakeWallets) Credit(_ context.Context, id uuid.UUID, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++
	f.credited += amount
	for _, w := range f.wallets {
		if w.ID == id {
			w.Balance += amount
		}
	}
	return nil
}

type fakeAdapter struct {
	name string

	mu          sync.Mutex
	initCalls   int
	verifyCalls int

	onInit    func(req provider.InitRequest)
	initResp  *provider.InitResponse
	initErr   error
	verifyRes *provider.VerifyResult
	verifyErr error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Initialize(_ context.Context, req provider.InitRequest) (*provider.InitResponse, error) {
	f.mu.Lock()
	f.initCalls++
	hook := f.onInit
	f.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	if f.initErr != nil {
		return nil, &provider.InitError{Provider: f.name, Err: f.initErr}
	}
	return f.initResp, nil
}

func (f *fakeAdapter) Verify(_ context.Context, _ string) (*provider.VerifyResult, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyRes, nil
}

func (f *fakeAdapter) VerifyWebhookSignature(http.Header, []byte) bool { return true }

func (f *fakeAdapter) ParseWebhookEvent([]byte) (*provider.WebhookEvent, error) {
	return &provider.WebhookEvent{}, nil
}

func newTestService() (*Service, *fakeRepo, *fakeWallets, *fakeAdapter) {
	repo := newFakeRepo()
	wallets := newFakeWallets()
	pay := &fakeAdapter{
		name:      provider.NamePaystack,
		initResp:  &provider.InitResponse{CheckoutURL: "https://checkout.test/x", ProviderReference: "ps_1"},
		verifyRes: &provider.VerifyResult{Status: provider.StatusPending},
	}
	registry := provider.NewRegistry(provider.NameNowPayments,
		pay,
		&fakeAdapter{name: provider.NameFlutterwave},
		&fakeAdapter{name: provider.NameNowPayments},
	)
	svc := NewService(repo, wallets, registry, LogEffects{}, nil, nil, ServiceConfig{
		FrontendURL: "http://localhost:3000",
		BackendURL:  "http://localhost:8080",
	})
	return svc, repo, wallets, pay
}

func initiateDeposit(t *testing.T, svc *Service, meta map[string]interface{}) *InitiateResult {
	t.Helper()
	result, err := svc.Initiate(context.Background(), InitiateParams{
		UserID:   uuid.New(),
		Email:    "user@example.com",
		Amount:   100,
		Currency: "NGN",
		Type:     TypeDeposit,
		Metadata: meta,
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	return result
}

func TestInitiateCreatesPendingTransaction(t *testing.T) {
	svc, repo, wallets, pay := newTestService()

	// The pending row must exist before the processor is contacted
	pay.onInit = func(req provider.InitRequest) {
		tx, err := repo.GetByReference(context.Background(), req.Reference)
		if err != nil {
			t.Errorf("transaction not persisted before provider call: %v", err)
			return
		}
		if tx.Status != StatusPending {
			t.Errorf("expected pending before provider call, got %s", tx.Status)
		}
	}

	result := initiateDeposit(t, svc, nil)

	if result.CheckoutURL != "https://checkout.test/x" {
		t.Errorf("unexpected checkout url: %s", result.CheckoutURL)
	}
	tx := result.Transaction
	if tx.Status != StatusPending {
		t.Errorf("expected pending, got %s", tx.Status)
	}
	if tx.Provider != provider.NamePaystack {
		t.Errorf("expected paystack for NGN, got %s", tx.Provider)
	}
	if tx.WalletID == nil {
		t.Error("expected wallet to be resolved at initiation")
	}
	if tx.ProviderReference == nil || *tx.ProviderReference != "ps_1" {
		t.Error("expected provider reference persisted")
	}
	if len(wallets.wallets) != 1 {
		t.Errorf("expected one wallet, got %d", len(wallets.wallets))
	}
	if repo.creates != 1 {
		t.Errorf("expected one create, got %d", repo.creates)
	}
}

func TestInitiateProviderFailureMarksFailed(t *testing.T) {
	svc, repo, wallets, pay := newTestService()
	pay.initErr = errors.New("paystack rejected request: invalid key")

	_, err := svc.Initiate(context.Background(), InitiateParams{
		UserID:   uuid.New(),
		Email:    "user@example.com",
		Amount:   100,
		Currency: "NGN",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var initErr *provider.InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}

	var stored *Transaction
	for _, tx := range repo.byID {
		stored = tx
	}
	if stored == nil {
		t.Fatal("expected transaction row despite init failure")
	}
	if stored.Status != StatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if _, ok := stored.Metadata["error"]; !ok {
		t.Error("expected error recorded in metadata")
	}
	if wallets.creditCalls != 0 {
		t.Error("no credit should happen on init failure")
	}
}

func TestInitiateIdempotencyKeyDedup(t *testing.T) {
	svc, repo, _, pay := newTestService()
	userID := uuid.New()
	meta := map[string]interface{}{"idempotencyKey": "idem-1"}

	first, err := svc.Initiate(context.Background(), InitiateParams{
		UserID: userID, Email: "user@example.com", Amount: 100, Currency: "NGN", Metadata: meta,
	})
	if err != nil {
		t.Fatalf("first initiate failed: %v", err)
	}

	second, err := svc.Initiate(context.Background(), InitiateParams{
		UserID: userID, Email: "user@example.com", Amount: 100, Currency: "NGN", Metadata: meta,
	})
	if err != nil {
		t.Fatalf("second initiate failed: %v", err)
	}

	if repo.creates != 1 {
		t.Errorf("expected one transaction, got %d creates", repo.creates)
	}
	if pay.initCalls != 1 {
		t.Errorf("expected one provider init, got %d", pay.initCalls)
	}
	if second.Transaction.Reference != first.Transaction.Reference {
		t.Error("second initiate resolved to a different transaction")
	}
	if second.CheckoutURL != first.CheckoutURL {
		t.Errorf("expected replay to return checkout url, got %q", second.CheckoutURL)
	}
}

func TestFinalizeCreditsExactlyOnce(t *testing.T) {
	svc, _, wallets, _ := newTestService()
	result := initiateDeposit(t, svc, nil)
	ref := result.Transaction.Reference

	tx, outcome, err := svc.Finalize(context.Background(), ref, FinalizeEvent{ExternalHash: "ext-1"})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if tx.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", tx.Status)
	}
	if tx.ExternalHash == nil || *tx.ExternalHash != "ext-1" {
		t.Error("expected external hash recorded")
	}

	_, outcome, err = svc.Finalize(context.Background(), ref, FinalizeEvent{})
	if err != nil {
		t.Fatalf("replay finalize failed: %v", err)
	}
	if outcome != OutcomeAlreadyCompleted {
		t.Fatalf("expected already_completed, got %s", outcome)
	}

	if wallets.creditCalls != 1 {
		t.Errorf("expected exactly one credit, got %d", wallets.creditCalls)
	}
	if wallets.credited != 100 {
		t.Errorf("expected credit of 100, got %f", wallets.credited)
	}
}

func TestFinalizeConcurrentRace(t *testing.T) {
	svc, _, wallets, _ := newTestService()
	result := initiateDeposit(t, svc, nil)
	ref := result.Transaction.Reference

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[FinalizeOutcome]int{}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := svc.Finalize(context.Background(), ref, FinalizeEvent{})
			if err != nil {
				t.Errorf("finalize failed: %v", err)
				return
			}
			mu.Lock()
			outcomes[outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if outcomes[OutcomeCompleted] != 1 {
		t.Errorf("expected exactly one winner, got %d (outcomes: %v)", outcomes[OutcomeCompleted], outcomes)
	}
	if wallets.creditCalls != 1 {
		t.Errorf("expected exactly one credit, got %d", wallets.creditCalls)
	}
}

func TestFinalizeByProviderReference(t *testing.T) {
	svc, _, _, _ := newTestService()
	initiateDeposit(t, svc, nil)

	// "ps_1" is the processor's own id, not our reference
	tx, outcome, err := svc.Finalize(context.Background(), "ps_1", FinalizeEvent{})
	if err != nil {
		t.Fatalf("finalize by provider reference failed: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if tx.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", tx.Status)
	}
}

func TestFinalizeUnknownReference(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, _, err := svc.Finalize(context.Background(), "inkw_missing", FinalizeEvent{})
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestVerifyReturnsTerminalStateWithoutPolling(t *testing.T) {
	svc, _, _, pay := newTestService()
	result := initiateDeposit(t, svc, nil)
	ref := result.Transaction.Reference

	if _, _, err := svc.Finalize(context.Background(), ref, FinalizeEvent{}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	before := pay.verifyCalls
	tx, err := svc.Verify(context.Background(), ref)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if tx.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", tx.Status)
	}
	if pay.verifyCalls != before {
		t.Error("terminal transaction should not be polled")
	}
}

func TestVerifySwallowsPollFailure(t *testing.T) {
	svc, _, _, pay := newTestService()
	result := initiateDeposit(t, svc, nil)
	pay.verifyErr = errors.New("paystack api returned non-2xx status: 400, body: oops")

	tx, err := svc.Verify(context.Background(), result.Transaction.Reference)
	if err != nil {
		t.Fatalf("poll failure must not surface: %v", err)
	}
	if tx.Status != StatusPending {
		t.Errorf("expected last known state pending, got %s", tx.Status)
	}
}

func TestVerifyFinalizesOnSuccess(t *testing.T) {
	svc, _, wallets, pay := newTestService()
	result := initiateDeposit(t, svc, nil)
	pay.verifyRes = &provider.VerifyResult{Status: provider.StatusSuccess, Amount: 100, Currency: "NGN"}

	tx, err := svc.Verify(context.Background(), result.Transaction.Reference)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if tx.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", tx.Status)
	}
	if wallets.creditCalls != 1 {
		t.Errorf("expected one credit, got %d", wallets.creditCalls)
	}
}

func TestVerifyFailsTransactionOnProviderFailure(t *testing.T) {
	svc, _, wallets, pay := newTestService()
	result := initiateDeposit(t, svc, nil)
	pay.verifyRes = &provider.VerifyResult{Status: provider.StatusFailed}

	tx, err := svc.Verify(context.Background(), result.Transaction.Reference)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if tx.Status != StatusFailed {
		t.Errorf("expected failed, got %s", tx.Status)
	}
	if wallets.creditCalls != 0 {
		t.Error("failed transaction must not credit")
	}
}

func TestFailTransactionNeverLeavesTerminalState(t *testing.T) {
	svc, _, _, _ := newTestService()
	result := initiateDeposit(t, svc, nil)
	ref := result.Transaction.Reference

	if _, _, err := svc.Finalize(context.Background(), ref, FinalizeEvent{}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tx, err := svc.FailTransaction(context.Background(), ref, "late failure signal")
	if err != nil {
		t.Fatalf("fail transaction errored: %v", err)
	}
	if tx.Status != StatusCompleted {
		t.Errorf("completed transaction must stay completed, got %s", tx.Status)
	}
}

func TestFailTransactionRepeatable(t *testing.T) {
	svc, _, _, _ := newTestService()
	result := initiateDeposit(t, svc, nil)
	ref := result.Transaction.Reference

	for i := 0; i < 2; i++ {
		tx, err := svc.FailTransaction(context.Background(), ref, "provider reported failure")
		if err != nil {
			t.Fatalf("fail transaction errored on call %d: %v", i+1, err)
		}
		if tx.Status != StatusFailed {
			t.Errorf("expected failed, got %s", tx.Status)
		}
	}
}
