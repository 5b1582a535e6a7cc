package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

const notifyTimeout = 15 * time.Second

// ============================================================
// Ports owned by the usecase
// ============================================================

// LaunchObserver receives step timings and outcomes (metrics).
type LaunchObserver interface {
	ObserveStep(mode launch.Mode, step launch.Step, elapsed time.Duration, err error)
	ObserveLaunch(mode launch.Mode, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveStep(launch.Mode, launch.Step, time.Duration, error) {}
func (noopObserver) ObserveLaunch(launch.Mode, error)                           {}

// LaunchDeps groups the collaborators of LaunchUsecase. Records, Notifier and
// Observer are optional.
type LaunchDeps struct {
	Ledger    launch.LedgerGateway
	Keys      launch.KeyCustodian
	Publisher launch.MetadataPublisher
	Sessions  launch.SessionStore

	Records  launch.RecordRepository
	Notifier launch.Notifier
	Observer LaunchObserver

	// Now and NewMint are overridable for tests.
	Now     func() time.Time
	NewMint func() *launch.MintIdentity
}

// ============================================================
// DTOs
// ============================================================

// PrepareResult is returned by Prepare. Transaction is the base64 wire form,
// already signed by the mint identity and the issuer.
type PrepareResult struct {
	SessionID   string    `json:"sessionId"`
	MintAddress string    `json:"mintAddress"`
	Transaction string    `json:"transaction"`
	FeePayer    string    `json:"feePayer"`
	FeeLamports uint64    `json:"feeLamports"`
	MetadataURI string    `json:"metadataUri"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type ExecuteRequest struct {
	SessionID         string `json:"sessionId"`
	SignedTransaction string `json:"signedTransaction"`
}

// ============================================================
// LaunchUsecase
// ============================================================

// LaunchUsecase runs the token launch pipeline in either mode. Both modes
// share validation, identity generation and metadata publication (steps 1-3)
// and everything after token creation (steps 5-8).
type LaunchUsecase struct {
	cfg LaunchConfig

	ledger    launch.LedgerGateway
	keys      launch.KeyCustodian
	publisher launch.MetadataPublisher
	sessions  launch.SessionStore
	records   launch.RecordRepository
	notifier  launch.Notifier
	observer  LaunchObserver

	now     func() time.Time
	newMint func() *launch.MintIdentity
}

func NewLaunchUsecase(cfg LaunchConfig, deps LaunchDeps) *LaunchUsecase {
	u := &LaunchUsecase{
		cfg:       cfg,
		ledger:    deps.Ledger,
		keys:      deps.Keys,
		publisher: deps.Publisher,
		sessions:  deps.Sessions,
		records:   deps.Records,
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		now:       deps.Now,
		newMint:   deps.NewMint,
	}
	if u.observer == nil {
		u.observer = noopObserver{}
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.newMint == nil {
		u.newMint = launch.NewMintIdentity
	}
	return u
}

func (u *LaunchUsecase) Config() LaunchConfig { return u.cfg }

// launchRun is the state of one orchestration run after steps 1-3.
type launchRun struct {
	mode      launch.Mode
	req       launch.Request
	recipient common.PublicKey
	mint      common.PublicKey
	metadata  launch.MetadataRecord
	feePayer  launch.FeePayer
	record    launch.Record
}

func (u *LaunchUsecase) ready() error {
	if u == nil || u.ledger == nil || u.keys == nil || u.publisher == nil {
		return fmt.Errorf("launch usecase is not properly initialized: %w", launch.ErrNotConfigured)
	}
	return nil
}

// ------------------------------------------------------------
// Single-shot (issuer signs)
// ------------------------------------------------------------

// Launch runs the whole pipeline with the issuer signing every transaction.
// Either the token ends up minted and immutable, or an error naming the
// failed step is returned.
func (u *LaunchUsecase) Launch(ctx context.Context, req launch.Request) (*launch.Result, error) {
	if err := u.ready(); err != nil {
		return nil, err
	}
	issuer := u.keys.SigningIdentity()

	run, mintID, err := u.begin(ctx, launch.ModeIssuerSigns, req)
	if err != nil {
		u.observer.ObserveLaunch(launch.ModeIssuerSigns, err)
		return nil, err
	}
	run.feePayer = launch.FeePayerIssuer

	// 4) create token
	started := u.now()
	tx, err := u.buildCreateTokenTx(ctx, run, issuer.PublicKey(), issuer.PublicKey(), nil)
	if err == nil {
		err = launch.SignTransaction(&tx, mintID, issuer)
		if err != nil {
			err = launch.AsLedgerError(launch.StepCreateToken, "sign", err)
		}
	}
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, err)
	}

	return u.createAndFinish(ctx, run, tx, started)
}

// ------------------------------------------------------------
// Two-phase (user signs)
// ------------------------------------------------------------

// Prepare performs steps 1-3 and builds the creation transaction with the
// recipient as fee payer. Nothing is submitted.
func (u *LaunchUsecase) Prepare(ctx context.Context, req launch.Request) (*PrepareResult, error) {
	if err := u.ready(); err != nil {
		return nil, err
	}
	if u.sessions == nil {
		return nil, fmt.Errorf("session store: %w", launch.ErrNotConfigured)
	}
	issuer := u.keys.SigningIdentity()

	run, mintID, err := u.begin(ctx, launch.ModeUserSigns, req)
	if err != nil {
		u.observer.ObserveLaunch(launch.ModeUserSigns, err)
		return nil, err
	}

	var fee *feeTransfer
	if lamports := u.cfg.FeeLamports(); u.cfg.CollectFeeOnPrepare && lamports > 0 {
		to := u.cfg.FeeTreasury
		if to == (common.PublicKey{}) {
			to = issuer.PublicKey()
		}
		fee = &feeTransfer{From: run.recipient, To: to, Lamports: lamports}
	}

	started := u.now()
	tx, err := u.buildCreateTokenTx(ctx, run, run.recipient, issuer.PublicKey(), fee)
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, err)
	}
	if err := launch.SignTransaction(&tx, mintID, issuer); err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, launch.AsLedgerError(launch.StepCreateToken, "sign", err))
	}

	msg, err := tx.Message.Serialize()
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, launch.AsLedgerError(launch.StepCreateToken, "serialize", err))
	}
	raw, err := tx.Serialize()
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, launch.AsLedgerError(launch.StepCreateToken, "serialize", err))
	}
	blob, err := launch.EncodeTransaction(tx)
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepCreateToken, started, launch.AsLedgerError(launch.StepCreateToken, "serialize", err))
	}

	now := u.now()
	sess := launch.Session{
		Mint:       run.mint,
		Recipient:  run.recipient,
		UnsignedTx: raw,
		Message:    msg,
		Metadata:   run.metadata,
		Request:    run.req,
		CreatedAt:  now,
		ExpiresAt:  now.Add(u.cfg.sessionTTL()),
	}
	id, err := u.sessions.Create(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("create launch session: %w", err)
	}

	log.Printf("[launch] prepared session=%s mint=%s recipient=%s",
		maskShort(id), maskShort(run.mint.ToBase58()), maskShort(run.recipient.ToBase58()))

	var feeLamports uint64
	if fee != nil {
		feeLamports = fee.Lamports
	}
	return &PrepareResult{
		SessionID:   id,
		MintAddress: run.mint.ToBase58(),
		Transaction: blob,
		FeePayer:    run.recipient.ToBase58(),
		FeeLamports: feeLamports,
		MetadataURI: run.metadata.URI,
		ExpiresAt:   sess.ExpiresAt,
	}, nil
}

// Execute consumes the session, checks the wallet-signed transaction against
// it, submits it and runs steps 5-8. The session is gone after this call
// whatever the outcome.
func (u *LaunchUsecase) Execute(ctx context.Context, in ExecuteRequest) (*launch.Result, error) {
	if err := u.ready(); err != nil {
		return nil, err
	}
	if u.sessions == nil {
		return nil, fmt.Errorf("session store: %w", launch.ErrNotConfigured)
	}

	reject := func(err error) (*launch.Result, error) {
		u.observer.ObserveLaunch(launch.ModeUserSigns, err)
		return nil, err
	}

	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		return reject(launch.ErrSessionNotFound)
	}
	sess, ok := u.sessions.Consume(ctx, id)
	if !ok {
		return reject(launch.ErrSessionNotFound)
	}
	if sess.Expired(u.now()) {
		u.SessionsExpired(ctx, []launch.Session{sess})
		return reject(launch.ErrSessionNotFound)
	}

	tx, err := launch.DecodeTransaction(in.SignedTransaction)
	if err != nil {
		return reject(err)
	}
	if !launch.HasSigner(tx, sess.Mint) {
		return reject(fmt.Errorf("%w: mint %s is not a signer", launch.ErrSessionMismatch, maskShort(sess.Mint.ToBase58())))
	}
	msg, err := tx.Message.Serialize()
	if err != nil || !bytes.Equal(msg, sess.Message) {
		return reject(fmt.Errorf("%w: transaction message differs from the prepared one", launch.ErrSessionMismatch))
	}
	if err := launch.VerifySignatures(tx); err != nil {
		return reject(launch.NewValidationError("signedTransaction", err.Error()))
	}

	run := u.runFromSession(sess)
	u.saveRecord(ctx, &run.record)
	return u.createAndFinish(ctx, run, tx, u.now())
}

// SessionsExpired marks the records of prepared launches whose session
// lapsed without Execute. Wire it to the session store's eviction callback.
func (u *LaunchUsecase) SessionsExpired(ctx context.Context, evicted []launch.Session) {
	if u == nil || u.records == nil {
		return
	}
	for _, sess := range evicted {
		run := u.runFromSession(sess)
		run.record.Status = launch.StatusExpired
		run.record.Error = "session expired before execute"
		u.saveRecord(ctx, &run.record)
	}
	if len(evicted) > 0 {
		log.Printf("[launch] marked expired sessions n=%d", len(evicted))
	}
}

// ------------------------------------------------------------
// Shared steps
// ------------------------------------------------------------

// begin runs steps 1-3. Validation failures touch neither the ledger nor the
// pinning backend.
func (u *LaunchUsecase) begin(ctx context.Context, mode launch.Mode, req launch.Request) (*launchRun, *launch.MintIdentity, error) {
	// 1) validate
	if err := req.Validate(); err != nil {
		u.observer.ObserveStep(mode, launch.StepValidate, 0, err)
		return nil, nil, err
	}
	n := req.Normalized()
	recipient, err := launch.ParseAddress("recipient", n.Recipient)
	if err != nil {
		return nil, nil, err
	}

	// 2) generate identity
	mintID := u.newMint()

	// 3) publish metadata (never fails)
	started := u.now()
	rec := u.publisher.Publish(ctx, launch.MetadataInput{
		Name:        n.Name,
		Symbol:      n.Symbol,
		Description: n.Description,
		Image:       n.Image,
		Socials:     n.Socials,
	})
	u.observer.ObserveStep(mode, launch.StepPublishMetadata, u.now().Sub(started), nil)

	now := u.now()
	run := &launchRun{
		mode:      mode,
		req:       n,
		recipient: recipient,
		mint:      mintID.PublicKey(),
		metadata:  rec,
		record: launch.Record{
			MintAddress: mintID.Address(),
			Recipient:   n.Recipient,
			Name:        n.Name,
			Symbol:      n.Symbol,
			MetadataURI: rec.URI,
			Mode:        mode,
			Status:      launch.StatusPending,
			Signatures:  map[launch.Step]string{},
			FeeCharged:  u.cfg.Fee,
			RequestedBy: n.RequestedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	u.saveRecord(ctx, &run.record)

	log.Printf("[launch] begin mode=%s mint=%s recipient=%s inline_metadata=%t description_truncated=%t",
		mode, maskShort(run.mint.ToBase58()), maskShort(n.Recipient), rec.Inline, rec.DescriptionTruncated)
	return run, mintID, nil
}

func (u *LaunchUsecase) runFromSession(sess launch.Session) *launchRun {
	now := u.now()
	return &launchRun{
		mode:      launch.ModeUserSigns,
		req:       sess.Request,
		recipient: sess.Recipient,
		mint:      sess.Mint,
		metadata:  sess.Metadata,
		feePayer:  launch.FeePayerRecipient,
		record: launch.Record{
			MintAddress: sess.Mint.ToBase58(),
			Recipient:   sess.Recipient.ToBase58(),
			Name:        sess.Request.Name,
			Symbol:      sess.Request.Symbol,
			MetadataURI: sess.Metadata.URI,
			Mode:        launch.ModeUserSigns,
			Status:      launch.StatusPending,
			Signatures:  map[launch.Step]string{},
			FeeCharged:  u.cfg.Fee,
			RequestedBy: sess.Request.RequestedBy,
			CreatedAt:   sess.CreatedAt,
			UpdatedAt:   now,
		},
	}
}

// buildCreateTokenTx builds the unsigned creation transaction (step 4).
func (u *LaunchUsecase) buildCreateTokenTx(
	ctx context.Context,
	run *launchRun,
	feePayer common.PublicKey,
	issuer common.PublicKey,
	fee *feeTransfer,
) (types.Transaction, error) {
	rent, err := u.ledger.MinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return types.Transaction{}, launch.AsLedgerError(launch.StepCreateToken, "rent_exemption", err)
	}
	blockhash, err := u.ledger.LatestBlockhash(ctx)
	if err != nil {
		return types.Transaction{}, launch.AsLedgerError(launch.StepCreateToken, "latest_blockhash", err)
	}

	msg, err := buildCreateTokenMessage(createTokenParams{
		FeePayer:     feePayer,
		Mint:         run.mint,
		Issuer:       issuer,
		Blockhash:    blockhash,
		RentLamports: rent,
		Decimals:     u.cfg.Decimals,
		Name:         run.req.Name,
		Symbol:       run.req.Symbol,
		URI:          run.metadata.URI,
		Fee:          fee,
	})
	if err != nil {
		return types.Transaction{}, launch.AsLedgerError(launch.StepCreateToken, "build", err)
	}
	return launch.NewUnsignedTransaction(msg), nil
}

// createAndFinish submits the signed creation transaction (step 4), waits for
// confirmation, then runs steps 5-8. Once the creation transaction has been
// handed to the ledger the run is detached from the caller's cancellation.
func (u *LaunchUsecase) createAndFinish(ctx context.Context, run *launchRun, tx types.Transaction, started time.Time) (*launch.Result, error) {
	ctx = context.WithoutCancel(ctx)

	sig, err := u.submitAndConfirm(ctx, run, launch.StepCreateToken, tx, started)
	if err != nil {
		return nil, err
	}
	run.record.Status = launch.StatusCreated
	u.saveRecord(ctx, &run.record)

	issuer := u.keys.SigningIdentity()

	// 5) ensure recipient account
	started = u.now()
	ata, err := u.ledger.DeriveAssociatedAccount(run.recipient, run.mint)
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepEnsureRecipientAccount, started, err)
	}
	acct, err := u.ledger.GetAccount(ctx, ata)
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepEnsureRecipientAccount, started, err)
	}
	if acct == nil {
		if _, err := u.issuerStep(ctx, run, launch.StepEnsureRecipientAccount, issuer, started, func(bh string) types.Message {
			return buildCreateRecipientAccountMessage(issuer.PublicKey(), run.recipient, run.mint, ata, bh)
		}); err != nil {
			return nil, err
		}
	} else {
		u.observer.ObserveStep(run.mode, launch.StepEnsureRecipientAccount, u.now().Sub(started), nil)
	}

	// 6) mint the whole supply
	amount, err := u.cfg.RawSupply()
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepMint, u.now(), err)
	}
	if _, err := u.issuerStep(ctx, run, launch.StepMint, issuer, u.now(), func(bh string) types.Message {
		return buildMintToMessage(issuer.PublicKey(), run.mint, ata, amount, bh)
	}); err != nil {
		return nil, err
	}
	run.record.Status = launch.StatusMinted
	u.saveRecord(ctx, &run.record)

	// 7) revoke mint, then freeze authority
	if _, err := u.issuerStep(ctx, run, launch.StepRevokeMintAuthority, issuer, u.now(), func(bh string) types.Message {
		return buildRevokeMessage(issuer.PublicKey(), run.mint, token.AuthorityTypeMintTokens, bh)
	}); err != nil {
		return nil, err
	}
	if _, err := u.issuerStep(ctx, run, launch.StepRevokeFreezeAuthority, issuer, u.now(), func(bh string) types.Message {
		return buildRevokeMessage(issuer.PublicKey(), run.mint, token.AuthorityTypeFreezeAccount, bh)
	}); err != nil {
		return nil, err
	}

	// 8) assemble
	metadataPDA, err := token_metadata.GetTokenMetaPubkey(run.mint)
	if err != nil {
		return nil, u.fail(ctx, run, launch.StepAssemble, u.now(), fmt.Errorf("GetTokenMetaPubkey: %w", err))
	}

	sigs := make(map[launch.Step]string, len(run.record.Signatures))
	for k, v := range run.record.Signatures {
		sigs[k] = v
	}
	res := launch.Result{
		Mode:            run.mode,
		MintAddress:     run.mint.ToBase58(),
		MetadataAddress: metadataPDA.ToBase58(),
		TokenAccount:    ata.ToBase58(),
		TotalSupply:     amount,
		Decimals:        u.cfg.Decimals,
		FeeCharged:      u.cfg.Fee,
		FeePayer:        run.feePayer,
		Signature:       sig,
		Signatures:      sigs,
		MetadataURI:     run.metadata.URI,
		ExplorerURL:     u.cfg.ExplorerTxURL(sig),
	}

	run.record.Status = launch.StatusCompleted
	u.saveRecord(ctx, &run.record)
	u.observer.ObserveLaunch(run.mode, nil)

	log.Printf("[launch] completed mode=%s mint=%s tx=%s", run.mode, maskShort(res.MintAddress), maskShort(sig))

	u.notify(ctx, run.req, res)
	return &res, nil
}

// issuerStep builds, signs (issuer only), submits and confirms one transaction.
func (u *LaunchUsecase) issuerStep(
	ctx context.Context,
	run *launchRun,
	step launch.Step,
	issuer launch.Signer,
	started time.Time,
	build func(blockhash string) types.Message,
) (string, error) {
	blockhash, err := u.ledger.LatestBlockhash(ctx)
	if err != nil {
		return "", u.fail(ctx, run, step, started, launch.AsLedgerError(step, "latest_blockhash", err))
	}
	tx := launch.NewUnsignedTransaction(build(blockhash))
	if err := launch.SignTransaction(&tx, issuer); err != nil {
		return "", u.fail(ctx, run, step, started, launch.AsLedgerError(step, "sign", err))
	}
	return u.submitAndConfirm(ctx, run, step, tx, started)
}

func (u *LaunchUsecase) submitAndConfirm(ctx context.Context, run *launchRun, step launch.Step, tx types.Transaction, started time.Time) (string, error) {
	sig, err := u.ledger.Submit(ctx, tx)
	if err != nil {
		return "", u.fail(ctx, run, step, started, launch.AsLedgerError(step, "submit", err))
	}
	run.record.Signatures[step] = sig

	if err := u.ledger.Confirm(ctx, sig); err != nil {
		return "", u.fail(ctx, run, step, started, launch.AsLedgerError(step, "confirm", err))
	}
	u.observer.ObserveStep(run.mode, step, u.now().Sub(started), nil)
	return sig, nil
}

// fail records the failed step and returns err attributed to it. Nothing is
// unwound: whatever already landed on chain stays there.
func (u *LaunchUsecase) fail(ctx context.Context, run *launchRun, step launch.Step, started time.Time, err error) error {
	var le *launch.LedgerError
	if !errors.As(err, &le) {
		err = launch.AsLedgerError(step, "step", err)
	} else if le.Step == "" {
		err = le.WithStep(step)
	}

	u.observer.ObserveStep(run.mode, step, u.now().Sub(started), err)
	u.observer.ObserveLaunch(run.mode, err)

	run.record.Status = launch.StatusFailed
	run.record.FailedStep = step
	run.record.Error = err.Error()
	u.saveRecord(context.WithoutCancel(ctx), &run.record)

	log.Printf("[launch] FAILED mode=%s mint=%s step=%s err=%v", run.mode, maskShort(run.mint.ToBase58()), step, err)
	return err
}

// saveRecord is best-effort: a repository failure is logged and never aborts the run.
func (u *LaunchUsecase) saveRecord(ctx context.Context, rec *launch.Record) {
	if u.records == nil || rec == nil {
		return
	}
	rec.UpdatedAt = u.now()
	if err := u.records.Save(ctx, *rec); err != nil {
		log.Printf("[launch] WARN: save record mint=%s status=%s: %v", maskShort(rec.MintAddress), rec.Status, err)
	}
}

func (u *LaunchUsecase) notify(ctx context.Context, req launch.Request, res launch.Result) {
	if u.notifier == nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := u.notifier.LaunchCompleted(nctx, req, res); err != nil {
			log.Printf("[launch] WARN: notify mint=%s: %v", maskShort(res.MintAddress), err)
		}
	}()
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
