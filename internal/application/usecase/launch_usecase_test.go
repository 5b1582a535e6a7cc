package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// SPL token instruction tags
const (
	tagInitializeMint = 0
	tagSetAuthority   = 6
	tagMintTo         = 7
)

// ------------------------------------------------------------
// fakes
// ------------------------------------------------------------

type fakeLedger struct {
	mu        sync.Mutex
	calls     int
	submitted []types.Transaction
	accounts  map[common.PublicKey]*launch.AccountInfo

	// failSubmit makes Submit fail for matching transactions.
	failSubmit func(tx types.Transaction) bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: map[common.PublicKey]*launch.AccountInfo{}}
}

func (f *fakeLedger) touch() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeLedger) LatestBlockhash(context.Context) (string, error) {
	f.touch()
	return "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", nil
}

func (f *fakeLedger) MinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	f.touch()
	return 1461600, nil
}

func (f *fakeLedger) Submit(_ context.Context, tx types.Transaction) (string, error) {
	f.touch()
	if err := launch.VerifySignatures(tx); err != nil {
		return "", launch.NewLedgerError("", "submit", err)
	}
	if f.failSubmit != nil && f.failSubmit(tx) {
		return "", launch.NewLedgerError("", "submit", errors.New("simulated rpc failure"))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, tx)
	return fmt.Sprintf("sig-%d", len(f.submitted)), nil
}

func (f *fakeLedger) Confirm(context.Context, string) error {
	f.touch()
	return nil
}

func (f *fakeLedger) GetAccount(_ context.Context, addr common.PublicKey) (*launch.AccountInfo, error) {
	f.touch()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[addr], nil
}

func (f *fakeLedger) DeriveAssociatedAccount(owner, mint common.PublicKey) (common.PublicKey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	return ata, err
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLedger) submittedTxs() []types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Transaction(nil), f.submitted...)
}

type accountSigner struct{ acc types.Account }

func (s accountSigner) PublicKey() common.PublicKey { return s.acc.PublicKey }
func (s accountSigner) Sign(msg []byte) []byte      { return s.acc.Sign(msg) }
func (s accountSigner) SigningIdentity() launch.Signer {
	return s
}

type fakePublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *fakePublisher) Publish(_ context.Context, in launch.MetadataInput) launch.MetadataRecord {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return launch.MetadataRecord{
		Name:   in.Name,
		Symbol: in.Symbol,
		URI:    "https://arweave.net/meta-" + in.Symbol,
	}
}

type mapSessions struct {
	mu   sync.Mutex
	seq  int
	byID map[string]launch.Session
}

func newMapSessions() *mapSessions { return &mapSessions{byID: map[string]launch.Session{}} }

func (m *mapSessions) Create(_ context.Context, s launch.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = fmt.Sprintf("session-%d", m.seq)
	m.byID[s.ID] = s
	return s.ID, nil
}

func (m *mapSessions) Consume(_ context.Context, id string) (launch.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	delete(m.byID, id)
	return s, ok
}

func (m *mapSessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type lastRecord struct {
	mu  sync.Mutex
	rec launch.Record
}

func (r *lastRecord) Save(_ context.Context, rec launch.Record) error {
	r.mu.Lock()
	r.rec = rec
	r.mu.Unlock()
	return nil
}

func (r *lastRecord) GetByMint(context.Context, string) (launch.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec, nil
}

func (r *lastRecord) Stats(context.Context) (launch.Stats, error) { return launch.Stats{}, nil }

// ------------------------------------------------------------
// helpers
// ------------------------------------------------------------

type fixture struct {
	uc        *LaunchUsecase
	ledger    *fakeLedger
	publisher *fakePublisher
	sessions  *mapSessions
	records   *lastRecord
	issuer    accountSigner
	recipient types.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    newFakeLedger(),
		publisher: &fakePublisher{},
		sessions:  newMapSessions(),
		records:   &lastRecord{},
		issuer:    accountSigner{acc: types.NewAccount()},
		recipient: types.NewAccount(),
	}
	f.uc = NewLaunchUsecase(LaunchConfig{
		Decimals:    6,
		TotalSupply: 1_000_000_000,
		Fee:         decimal.RequireFromString("0.02"),
		SessionTTL:  time.Minute,
		Cluster:     "devnet",
	}, LaunchDeps{
		Ledger:    f.ledger,
		Keys:      f.issuer,
		Publisher: f.publisher,
		Sessions:  f.sessions,
		Records:   f.records,
	})
	return f
}

func (f *fixture) request(symbol string) launch.Request {
	return launch.Request{
		Recipient:   f.recipient.PublicKey.ToBase58(),
		Name:        "Launchium Test " + symbol,
		Symbol:      symbol,
		Description: "test token",
	}
}

func tokenTags(tx types.Transaction) []byte {
	var out []byte
	for _, ins := range tx.Message.Instructions {
		if tx.Message.Accounts[ins.ProgramIDIndex] == common.TokenProgramID && len(ins.Data) > 0 {
			out = append(out, ins.Data[0])
		}
	}
	return out
}

func hasTag(tx types.Transaction, tag byte) bool {
	for _, t := range tokenTags(tx) {
		if t == tag {
			return true
		}
	}
	return false
}

// userSign decodes the prepared blob, adds the recipient signature and re-encodes it.
func userSign(t *testing.T, blob string, user types.Account) string {
	t.Helper()
	tx, err := launch.DecodeTransaction(blob)
	if err != nil {
		t.Fatalf("decode prepared tx: %v", err)
	}
	if err := launch.SignTransaction(&tx, accountSigner{acc: user}); err != nil {
		t.Fatalf("user sign: %v", err)
	}
	out, err := launch.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("encode signed tx: %v", err)
	}
	return out
}

// ------------------------------------------------------------
// single-shot
// ------------------------------------------------------------

func TestLaunchRunsStepsInOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Launch(context.Background(), f.request("LNCH"))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	txs := f.ledger.submittedTxs()
	if len(txs) != 5 {
		t.Fatalf("expected 5 submitted transactions, got %d", len(txs))
	}
	if !hasTag(txs[0], tagInitializeMint) {
		t.Fatalf("first transaction should initialise the mint, tags=%v", tokenTags(txs[0]))
	}
	if len(tokenTags(txs[1])) != 0 {
		t.Fatalf("second transaction should only create the token account, tags=%v", tokenTags(txs[1]))
	}
	if !hasTag(txs[2], tagMintTo) {
		t.Fatalf("third transaction should mint, tags=%v", tokenTags(txs[2]))
	}
	if !hasTag(txs[3], tagSetAuthority) || !hasTag(txs[4], tagSetAuthority) {
		t.Fatalf("last two transactions should revoke authorities")
	}
	if txs[0].Message.Accounts[0] != f.issuer.PublicKey() {
		t.Fatalf("issuer should pay for creation in single-shot mode")
	}

	if res.Mode != launch.ModeIssuerSigns || res.FeePayer != launch.FeePayerIssuer {
		t.Fatalf("unexpected mode/fee payer: %s/%s", res.Mode, res.FeePayer)
	}
	if res.TotalSupply != 1_000_000_000_000_000 {
		t.Fatalf("unexpected raw supply: %d", res.TotalSupply)
	}
	if res.Signature != "sig-1" {
		t.Fatalf("result signature should be the creation tx, got %s", res.Signature)
	}
	if !res.FeeCharged.Equal(decimal.RequireFromString("0.02")) {
		t.Fatalf("unexpected fee: %s", res.FeeCharged)
	}
	if !strings.Contains(res.ExplorerURL, "cluster=devnet") {
		t.Fatalf("explorer url should carry the cluster: %s", res.ExplorerURL)
	}
	if len(res.Signatures) != 5 {
		t.Fatalf("expected a signature per ledger step, got %v", res.Signatures)
	}

	rec, _ := f.records.GetByMint(context.Background(), res.MintAddress)
	if rec.Status != launch.StatusCompleted {
		t.Fatalf("record should be completed, got %s", rec.Status)
	}
}

func TestLaunchSkipsExistingRecipientAccount(t *testing.T) {
	f := newFixture(t)
	mint := launch.NewMintIdentity()
	f.uc.newMint = func() *launch.MintIdentity { return mint }

	ata, _, err := common.FindAssociatedTokenAddress(f.recipient.PublicKey, mint.PublicKey())
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}
	f.ledger.accounts[ata] = &launch.AccountInfo{Lamports: 2039280, Owner: common.TokenProgramID}

	if _, err := f.uc.Launch(context.Background(), f.request("SKIP")); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if n := len(f.ledger.submittedTxs()); n != 4 {
		t.Fatalf("expected 4 transactions when the token account exists, got %d", n)
	}
}

func TestLaunchMintFailureStopsBeforeRevocation(t *testing.T) {
	f := newFixture(t)
	f.ledger.failSubmit = func(tx types.Transaction) bool { return hasTag(tx, tagMintTo) }

	_, err := f.uc.Launch(context.Background(), f.request("FAIL"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	var le *launch.LedgerError
	if !errors.As(err, &le) {
		t.Fatalf("expected LedgerError, got %T %v", err, err)
	}
	if le.Step != launch.StepMint {
		t.Fatalf("expected failure at %s, got %s", launch.StepMint, le.Step)
	}
	if !errors.Is(err, launch.ErrLedger) {
		t.Fatalf("errors.Is(err, ErrLedger) should hold")
	}

	for _, tx := range f.ledger.submittedTxs() {
		if hasTag(tx, tagSetAuthority) {
			t.Fatalf("no revocation should be attempted after a mint failure")
		}
	}

	rec, _ := f.records.GetByMint(context.Background(), "")
	if rec.Status != launch.StatusFailed || rec.FailedStep != launch.StepMint {
		t.Fatalf("record should show failure at mint, got %s/%s", rec.Status, rec.FailedStep)
	}
}

func TestLaunchRejectsLongNameWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	req := f.request("LONG")
	req.Name = strings.Repeat("a", 33)

	_, err := f.uc.Launch(context.Background(), req)
	if !errors.Is(err, launch.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ve *launch.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
	if f.ledger.callCount() != 0 {
		t.Fatalf("ledger must not be touched, got %d calls", f.ledger.callCount())
	}
	if f.publisher.calls != 0 {
		t.Fatalf("publisher must not be touched, got %d calls", f.publisher.calls)
	}

	if _, err := f.uc.Prepare(context.Background(), req); !errors.Is(err, launch.ErrValidation) {
		t.Fatalf("prepare should reject too, got %v", err)
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("no session should be stored")
	}
}

// ------------------------------------------------------------
// two-phase
// ------------------------------------------------------------

func TestPrepareExecuteKeepsMintAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prep, err := f.uc.Prepare(ctx, f.request("TWO"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(f.ledger.submittedTxs()) != 0 {
		t.Fatalf("prepare must not submit anything")
	}
	if prep.FeePayer != f.recipient.PublicKey.ToBase58() {
		t.Fatalf("recipient should pay in two-phase mode, got %s", prep.FeePayer)
	}

	res, err := f.uc.Execute(ctx, ExecuteRequest{
		SessionID:         prep.SessionID,
		SignedTransaction: userSign(t, prep.Transaction, f.recipient),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.MintAddress != prep.MintAddress {
		t.Fatalf("mint address changed: prepare=%s execute=%s", prep.MintAddress, res.MintAddress)
	}
	if res.Mode != launch.ModeUserSigns || res.FeePayer != launch.FeePayerRecipient {
		t.Fatalf("unexpected mode/fee payer: %s/%s", res.Mode, res.FeePayer)
	}
	if n := len(f.ledger.submittedTxs()); n != 5 {
		t.Fatalf("expected 5 submitted transactions, got %d", n)
	}
}

func TestExecuteTwiceFailsWithSessionNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prep, err := f.uc.Prepare(ctx, f.request("ONCE"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	in := ExecuteRequest{SessionID: prep.SessionID, SignedTransaction: userSign(t, prep.Transaction, f.recipient)}

	if _, err := f.uc.Execute(ctx, in); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, err := f.uc.Execute(ctx, in); !errors.Is(err, launch.ErrSessionNotFound) {
		t.Fatalf("second Execute should fail with ErrSessionNotFound, got %v", err)
	}
}

func TestExecuteRejectsOtherSessionsTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.uc.Prepare(ctx, f.request("AAA"))
	if err != nil {
		t.Fatalf("Prepare a: %v", err)
	}
	b, err := f.uc.Prepare(ctx, f.request("BBB"))
	if err != nil {
		t.Fatalf("Prepare b: %v", err)
	}

	_, err = f.uc.Execute(ctx, ExecuteRequest{
		SessionID:         a.SessionID,
		SignedTransaction: userSign(t, b.Transaction, f.recipient),
	})
	if !errors.Is(err, launch.ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch, got %v", err)
	}
	if n := len(f.ledger.submittedTxs()); n != 0 {
		t.Fatalf("nothing should be submitted on mismatch, got %d", n)
	}

	// the session is consumed regardless of outcome
	if _, err := f.uc.Execute(ctx, ExecuteRequest{SessionID: a.SessionID, SignedTransaction: userSign(t, a.Transaction, f.recipient)}); !errors.Is(err, launch.ErrSessionNotFound) {
		t.Fatalf("session a should be gone, got %v", err)
	}
}

func TestExecuteRequiresUserSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prep, err := f.uc.Prepare(ctx, f.request("NOSIG"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	_, err = f.uc.Execute(ctx, ExecuteRequest{SessionID: prep.SessionID, SignedTransaction: prep.Transaction})
	var ve *launch.ValidationError
	if !errors.As(err, &ve) || ve.Field != "signedTransaction" {
		t.Fatalf("expected signedTransaction validation error, got %v", err)
	}
	if n := len(f.ledger.submittedTxs()); n != 0 {
		t.Fatalf("nothing should be submitted, got %d", n)
	}
}

func TestExecuteRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prep, err := f.uc.Prepare(ctx, f.request("JUNK"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	_, err = f.uc.Execute(ctx, ExecuteRequest{SessionID: prep.SessionID, SignedTransaction: "%%% not base64"})
	if !errors.Is(err, launch.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.uc.Execute(ctx, ExecuteRequest{SessionID: "missing"}); !errors.Is(err, launch.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPrepareAddsFeeTransferWhenEnabled(t *testing.T) {
	f := newFixture(t)
	treasury := types.NewAccount().PublicKey
	f.uc.cfg.CollectFeeOnPrepare = true
	f.uc.cfg.FeeTreasury = treasury

	prep, err := f.uc.Prepare(context.Background(), f.request("FEE"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prep.FeeLamports != 20_000_000 {
		t.Fatalf("expected 0.02 SOL in lamports, got %d", prep.FeeLamports)
	}
	tx, err := launch.DecodeTransaction(prep.Transaction)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, a := range tx.Message.Accounts {
		if a == treasury {
			found = true
		}
	}
	if !found {
		t.Fatalf("treasury should be referenced by the fee transfer")
	}
}

func TestConcurrentPreparesAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*PrepareResult, 2)
	errs := make([]error, 2)
	for i, sym := range []string{"CONA", "CONB"} {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			results[i], errs[i] = f.uc.Prepare(ctx, f.request(sym))
		}(i, sym)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Prepare %d: %v", i, err)
		}
	}
	if results[0].SessionID == results[1].SessionID {
		t.Fatalf("session ids must differ")
	}
	if results[0].MintAddress == results[1].MintAddress {
		t.Fatalf("mint identities must differ")
	}
	if results[0].MetadataURI == results[1].MetadataURI {
		t.Fatalf("metadata must not be shared between runs")
	}
}

func TestNotConfiguredUsecase(t *testing.T) {
	var uc *LaunchUsecase
	if _, err := uc.Launch(context.Background(), launch.Request{}); !errors.Is(err, launch.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExpiredSessionMarksRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request("EXP")
	req.RequestedBy = "uid-9"
	prep, err := f.uc.Prepare(ctx, req)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if rec, _ := f.records.GetByMint(ctx, prep.MintAddress); rec.Status != launch.StatusPending || rec.RequestedBy != "uid-9" {
		t.Fatalf("prepared record: %+v", rec)
	}

	sess, ok := f.sessions.Consume(ctx, prep.SessionID)
	if !ok {
		t.Fatalf("session missing")
	}
	f.uc.SessionsExpired(ctx, []launch.Session{sess})

	rec, _ := f.records.GetByMint(ctx, prep.MintAddress)
	if rec.Status != launch.StatusExpired || rec.MintAddress != prep.MintAddress {
		t.Fatalf("expected expired record, got %+v", rec)
	}
	if rec.RequestedBy != "uid-9" || !rec.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("expired record lost its origin: %+v", rec)
	}
	if len(f.ledger.submittedTxs()) != 0 {
		t.Fatalf("expiry must not submit anything")
	}
}
