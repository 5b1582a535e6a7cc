// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	httpin "github.com/gigagfun/launchium-token-creator/internal/adapters/in/http"
	"github.com/gigagfun/launchium-token-creator/internal/adapters/in/http/middleware"
	dbadapter "github.com/gigagfun/launchium-token-creator/internal/adapters/out/db"
	fsadapter "github.com/gigagfun/launchium-token-creator/internal/adapters/out/firestore"
	gcsadapter "github.com/gigagfun/launchium-token-creator/internal/adapters/out/gcs"
	mailadapter "github.com/gigagfun/launchium-token-creator/internal/adapters/out/mail"
	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
	arweaveinfra "github.com/gigagfun/launchium-token-creator/internal/infra/arweave"
	appcfg "github.com/gigagfun/launchium-token-creator/internal/infra/config"
	"github.com/gigagfun/launchium-token-creator/internal/infra/database"
	firestoreinfra "github.com/gigagfun/launchium-token-creator/internal/infra/firestore"
	"github.com/gigagfun/launchium-token-creator/internal/infra/memstore"
	metadatainfra "github.com/gigagfun/launchium-token-creator/internal/infra/metadata"
	"github.com/gigagfun/launchium-token-creator/internal/infra/metrics"
	"github.com/gigagfun/launchium-token-creator/internal/infra/session"
	solanainfra "github.com/gigagfun/launchium-token-creator/internal/infra/solana"
)

const expiredRecordTimeout = 10 * time.Second

// Container owns every long-lived client and the two usecases.
type Container struct {
	Config *appcfg.Config

	// Clients (owned; Close-managed)
	SecretManager *secretmanager.Client
	GCS           *storage.Client
	Firestore     *firestoreinfra.ClientWrapper
	DB            *database.DB

	Ledger   *solanainfra.LedgerClient
	Issuer   *solanainfra.IssuerKeyring
	Sessions *session.MemoryStore
	Metrics  *metrics.LaunchMetrics
	Auth     *middleware.AuthMiddleware

	LaunchUC *usecase.LaunchUsecase
	QueryUC  *usecase.LaunchQueryUsecase
}

// NewContainer builds the container. Config and the token standard are
// strict. Every optional backend is best-effort: it logs a WARN and the
// service continues with the in-memory or inline fallback. A missing issuer
// credential leaves LaunchUC nil, so launch endpoints answer not_configured.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	launchCfg, err := cfg.LaunchConfig()
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}

	var clientOpts []option.ClientOption
	if f := strings.TrimSpace(cfg.FirestoreCredentialsFile); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
	}

	// 1) Ledger
	c.Ledger = solanainfra.NewLedgerClient(solanainfra.LedgerConfig{
		RPCURL:         cfg.SolanaRPCURL,
		Commitment:     cfg.SolanaCommitment,
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.ConfirmPollInterval,
		RPCTimeout:     cfg.SolanaRPCTimeout,
		RPCPerSecond:   cfg.SolanaRPCPerSecond,
	})
	log.Printf("[di] ledger cluster=%s commitment=%s", cfg.SolanaCluster, c.Ledger.Commitment)

	// 2) Issuer credential
	if src := c.issuerSource(ctx, clientOpts); src != nil {
		issuer, err := solanainfra.LoadIssuerKeyring(ctx, src)
		if err != nil {
			log.Printf("[di] WARN: issuer keyring unavailable: %v", err)
		} else {
			c.Issuer = issuer
		}
	} else {
		log.Printf("[di] WARN: no issuer credential configured (ISSUER_SECRET_NAME / ISSUER_SECRET_KEY_FILE / ISSUER_SECRET_KEY)")
	}

	// 3) Metrics + sessions
	c.Metrics = metrics.NewLaunchMetrics(nil)
	c.Sessions = session.NewMemoryStore(cfg.SessionMax, 0)
	c.Metrics.TrackSessions(c.Sessions.Len)

	// 4) Metadata publisher
	publisher := metadatainfra.NewPublisher(cfg.MetadataPublishTimeout, c.metadataBackends(ctx, clientOpts)...)

	// 5) Launch records
	records := c.recordRepository(ctx)

	// 6) Notifier
	var notifier launch.Notifier
	if cfg.SendGridAPIKey != "" && cfg.NotifyTo != "" {
		notifier = mailadapter.NewLaunchNotifier(
			mailadapter.NewSendGridClient(cfg.SendGridAPIKey, ""),
			cfg.NotifyFrom,
			cfg.NotifyTo,
		)
		log.Printf("[di] launch notifications enabled")
	}

	// 7) Firebase auth (only when required)
	if cfg.AuthRequired {
		c.Auth = &middleware.AuthMiddleware{}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, clientOpts...)
		if err != nil {
			log.Printf("[di] WARN: firebase app init failed: %v (launch endpoints will answer 503)", err)
		} else if authClient, err := app.Auth(ctx); err != nil {
			log.Printf("[di] WARN: firebase auth init failed: %v (launch endpoints will answer 503)", err)
		} else {
			c.Auth.Verifier = authClient
		}
	}

	// 8) Usecases
	if c.Issuer != nil {
		c.LaunchUC = usecase.NewLaunchUsecase(launchCfg, usecase.LaunchDeps{
			Ledger:    c.Ledger,
			Keys:      c.Issuer,
			Publisher: publisher,
			Sessions:  c.Sessions,
			Records:   records,
			Notifier:  notifier,
			Observer:  c.Metrics,
		})
	}
	c.QueryUC = usecase.NewLaunchQueryUsecase(launchCfg, solanainfra.NewMintReader(c.Ledger), records, c.Sessions)

	// 9) Lapsed sessions: count them and mark their records expired
	launchUC, m := c.LaunchUC, c.Metrics
	c.Sessions.SetOnEvict(func(evicted []launch.Session) {
		m.SessionEvicted(len(evicted))
		if launchUC != nil {
			ctx, cancel := context.WithTimeout(context.Background(), expiredRecordTimeout)
			defer cancel()
			launchUC.SessionsExpired(ctx, evicted)
		}
	})

	return c, nil
}

func (c *Container) issuerSource(ctx context.Context, opts []option.ClientOption) solanainfra.SecretSource {
	cfg := c.Config
	switch {
	case cfg.IssuerSecretName != "":
		sm, err := secretmanager.NewClient(ctx, opts...)
		if err != nil {
			log.Printf("[di] WARN: secretmanager.NewClient failed: %v", err)
			return nil
		}
		c.SecretManager = sm
		return solanainfra.SecretManagerSecret{Client: sm, Name: cfg.IssuerSecretName}
	case cfg.IssuerSecretFile != "":
		return solanainfra.FileSecret(cfg.IssuerSecretFile)
	case cfg.IssuerSecretKey != "":
		return solanainfra.InlineSecret(cfg.IssuerSecretKey)
	}
	return nil
}

func (c *Container) metadataBackends(ctx context.Context, opts []option.ClientOption) []metadatainfra.Backend {
	cfg := c.Config
	switch cfg.MetadataBackend {
	case "arweave":
		log.Printf("[di] metadata backend=arweave baseURL=%s", cfg.ArweaveBaseURL)
		return []metadatainfra.Backend{
			arweaveinfra.NewHTTPUploader(cfg.ArweaveBaseURL, cfg.ArweaveAPIKey, cfg.MetadataPublishTimeout),
		}
	case "gcs":
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			log.Printf("[di] WARN: storage.NewClient failed: %v (metadata falls back to inline)", err)
			return nil
		}
		c.GCS = client
		log.Printf("[di] metadata backend=gcs bucket=%s", cfg.MetadataBucket)
		return []metadatainfra.Backend{gcsadapter.NewMetadataStoreGCS(client, cfg.MetadataBucket)}
	}
	log.Printf("[di] metadata backend=inline")
	return nil
}

func (c *Container) recordRepository(ctx context.Context) launch.RecordRepository {
	cfg := c.Config
	switch cfg.LaunchStore {
	case "firestore":
		fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			log.Printf("[di] WARN: %v (launch records kept in memory)", err)
			break
		}
		c.Firestore = fs
		return fsadapter.NewLaunchRepositoryFS(fs.Client)
	case "postgres":
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("[di] WARN: %v (launch records kept in memory)", err)
			break
		}
		repo := dbadapter.NewLaunchRepositoryPG(db.Client)
		if err := repo.Migrate(ctx); err != nil {
			log.Printf("[di] WARN: %v (launch records kept in memory)", err)
			_ = db.Close()
			break
		}
		c.DB = db
		return repo
	}
	log.Printf("[di] launch records store=memory")
	return memstore.NewLaunchRecordStore()
}

// RouterDeps exposes the wired usecases to the HTTP router.
func (c *Container) RouterDeps() httpin.RouterDeps {
	deps := httpin.RouterDeps{
		QueryUC:            c.QueryUC,
		Metrics:            c.Metrics.Handler(),
		CORSAllowedOrigins: c.Config.CORSAllowedOrigins,
		MaxRequestBytes:    c.Config.MaxRequestBytes,
	}
	// A nil *LaunchUsecase still mounts the routes and answers not_configured.
	deps.LaunchUC = c.LaunchUC
	deps.Auth = c.Auth
	return deps
}

// Close stops the session janitor and releases every client.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []string
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	if c.Firestore != nil {
		if err := c.Firestore.Close(); err != nil {
			errs = append(errs, "firestore: "+err.Error())
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, "db: "+err.Error())
		}
	}
	if c.GCS != nil {
		if err := c.GCS.Close(); err != nil {
			errs = append(errs, "gcs: "+err.Error())
		}
	}
	if c.SecretManager != nil {
		if err := c.SecretManager.Close(); err != nil {
			errs = append(errs, "secretmanager: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("di close: %s", strings.Join(errs, "; "))
	}
	return nil
}
