// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, attachment storage) and
// wires the messages service on top of it.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/courier/pkg/config"
	"github.com/Abraxas-365/courier/pkg/fsx"
	"github.com/Abraxas-365/courier/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/courier/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/courier/pkg/iam/auth"
	"github.com/Abraxas-365/courier/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/courier/pkg/jobx"
	"github.com/Abraxas-365/courier/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/messages/mailsender"
	"github.com/Abraxas-365/courier/pkg/messages/messagesapi"
	"github.com/Abraxas-365/courier/pkg/messages/messagesinfra"
	"github.com/Abraxas-365/courier/pkg/messages/warmup"
	"github.com/Abraxas-365/courier/pkg/messages/workflow"
	"github.com/Abraxas-365/courier/pkg/notifx"
	"github.com/Abraxas-365/courier/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/courier/pkg/notifx/notifxses"
	"github.com/Abraxas-365/courier/pkg/notifx/notifxsmtp"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the wired messages service.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB          *sqlx.DB
	Redis       *redis.Client
	Attachments fsx.FileReader

	// Messages collaborators
	Templates messages.TemplateStore
	Languages messages.LanguageStore
	Accounts  messages.AccountStore
	Stores    messages.StoreDirectory
	Queue     messages.MailQueue
	Outbox    messages.Outbox
	Settings  messages.SettingStore
	LogSink   messages.LogSink

	settingsFile *messagesinfra.TOMLSettingStore

	// Services
	Renderer   *render.Renderer
	Dispatcher *workflow.Dispatcher
	Warmup     *warmup.Task
	Sender     *mailsender.Task
	Scheduler  *jobx.Scheduler
	Jobs       *jobx.Client

	// Admin API
	TokenService   auth.TokenService
	AuthMiddleware *auth.TokenMiddleware
	MessageHandler *messagesapi.Handler
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initStorage()
	c.initRendering()
	c.initDelivery()
	c.initJobs()
	c.initAPI()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, attachment storage
// ---------------------------------------------------------------------------

func (c *Container) needsDB() bool {
	return c.Config.Storage.Driver == "sql" || c.Config.Storage.Queue == "sql"
}

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	if c.needsDB() {
		db, err := sqlx.Connect(c.Config.Database.Driver, c.Config.Database.DSN)
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(30 * time.Minute)
		c.DB = db
		logx.Infof("  ✅ Database connected (%s)", c.Config.Database.Driver)

		if c.Config.Database.AutoMigrate {
			if err := messagesinfra.Migrate(context.Background(), db); err != nil {
				logx.Fatalf("Failed to migrate database: %v", err)
			}
			logx.Info("  ✅ Schema migrated")
		}
	}

	// 2. Redis
	if c.Config.Redis.Addr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("  ✅ Redis connected")
	}

	// 3. Attachment storage
	c.initFileStorage()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) loadAWS() aws.Config {
	cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(c.Config.Mail.AWSRegion))
	if err != nil {
		logx.Fatalf("Unable to load AWS SDK config: %v", err)
	}
	return cfg
}

func (c *Container) initFileStorage() {
	st := c.Config.Storage

	switch st.Attachments {
	case "s3":
		client := s3.NewFromConfig(c.loadAWS())
		c.Attachments = fsxs3.NewS3FileSystem(client, st.S3Bucket, st.S3Prefix)
		logx.Infof("  ✅ S3 attachments configured (bucket: %s)", st.S3Bucket)

	default:
		localFS, err := fsxlocal.NewLocalFileSystem(st.LocalPath)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.Attachments = localFS
		logx.Infof("  ✅ Local attachments configured (path: %s)", localFS.BasePath())
	}
}

// ---------------------------------------------------------------------------
// Messages storage: stores, queue, settings, log sink
// ---------------------------------------------------------------------------

func (c *Container) initStorage() {
	logx.Info("📦 Initializing message storage...")
	defaultAccount := kernel.AccountID(c.Config.Mail.DefaultAccountID)

	switch c.Config.Storage.Driver {
	case "memory":
		c.Templates = messagesinfra.NewMemoryTemplateStore()
		c.Languages = messagesinfra.NewMemoryLanguageStore()
		c.Accounts = messagesinfra.NewMemoryAccountStore(defaultAccount)
		c.Stores = messagesinfra.NewMemoryStoreDirectory()
	default:
		c.Templates = messagesinfra.NewSQLTemplateStore(c.DB)
		c.Languages = messagesinfra.NewSQLLanguageStore(c.DB)
		c.Accounts = messagesinfra.NewSQLAccountStore(c.DB, defaultAccount)
		c.Stores = messagesinfra.NewSQLStoreDirectory(c.DB)
	}
	logx.Infof("  ✅ Template storage: %s", c.Config.Storage.Driver)

	switch c.Config.Storage.Queue {
	case "redis":
		q := messagesinfra.NewRedisMailQueue(c.Redis, c.Config.Redis.Prefix+":mail")
		c.Queue, c.Outbox = q, q
	case "memory":
		q := messagesinfra.NewMemoryMailQueue()
		c.Queue, c.Outbox = q, q
	default:
		q := messagesinfra.NewSQLMailQueue(c.DB)
		c.Queue, c.Outbox = q, q
	}
	logx.Infof("  ✅ Mail queue: %s", c.Config.Storage.Queue)

	settings, err := messagesinfra.NewTOMLSettingStore(c.Config.SettingsFile)
	if err != nil {
		logx.Fatalf("Failed to load settings: %v", err)
	}
	c.Settings = settings
	c.settingsFile = settings

	if c.DB != nil {
		c.LogSink = messagesinfra.NewSQLLogSink(c.DB)
	} else {
		c.LogSink = logx.NewSink(nil, "messages")
	}
}

// ---------------------------------------------------------------------------
// Rendering and notification workflow
// ---------------------------------------------------------------------------

func (c *Container) initRendering() {
	engine, err := render.NewEngine(c.Config.Render.Engine)
	if err != nil {
		logx.Fatalf("Failed to initialize render engine: %v", err)
	}

	caseInsensitive := c.Settings.GetBool(context.Background(),
		messages.SettingCaseInvariantReplace, c.Config.Render.CaseInvariantReplacement)

	c.Renderer = render.NewRenderer(render.NewCache(engine), render.WithCaseInsensitiveKeys(caseInsensitive))
	c.Dispatcher = workflow.NewDispatcher(
		c.Templates, c.Languages, c.Accounts, c.Stores, c.Queue, c.Renderer,
		workflow.WithEmbedErrors(c.Config.Render.EmbedErrors),
	)
	c.Warmup = warmup.NewTask(
		c.Stores, c.Templates, c.Languages, c.Renderer, c.Settings, c.LogSink,
		warmup.WithHistory(warmup.NewRunHistory(c.Config.Warmup.HistorySize)),
	)
	logx.Infof("  ✅ Renderer ready (engine: %s, case-insensitive tokens: %t)", engine.Name(), caseInsensitive)
}

// ---------------------------------------------------------------------------
// Delivery: transport and queued-mail sender
// ---------------------------------------------------------------------------

func (c *Container) newTransport() notifx.EmailSender {
	mc := c.Config.Mail

	switch mc.Provider {
	case "ses":
		logx.Infof("  ✅ Mail transport: SES (region: %s)", mc.AWSRegion)
		return notifxses.NewSESProvider(ses.NewFromConfig(c.loadAWS()))
	case "smtp":
		logx.Infof("  ✅ Mail transport: SMTP (%s:%d)", mc.SMTPHost, mc.SMTPPort)
		return notifxsmtp.NewSMTPProvider(notifxsmtp.Config{
			Host:     mc.SMTPHost,
			Port:     mc.SMTPPort,
			Username: mc.SMTPUsername,
			Password: mc.SMTPPassword,
			SSL:      mc.SMTPSSL,
		})
	default:
		logx.Info("  ✅ Mail transport: console")
		return notifxconsole.NewConsoleProvider()
	}
}

func (c *Container) initDelivery() {
	sc := c.Config.Sender

	opts := []mailsender.Option{
		mailsender.WithAttachments(c.Attachments),
		mailsender.WithRateLimit(sc.RateLimit, sc.Burst),
		mailsender.WithBatchSize(sc.BatchSize),
		mailsender.WithWorkers(sc.Workers),
		mailsender.WithMaxAttempts(sc.MaxAttempts),
	}
	if c.Config.Mail.SESConfigSet != "" {
		opts = append(opts, mailsender.WithSendOptions(notifx.WithConfigID(c.Config.Mail.SESConfigSet)))
	}
	c.Sender = mailsender.NewTask(c.Outbox, notifx.NewClient(c.newTransport()), opts...)
}

// ---------------------------------------------------------------------------
// Background jobs: scheduler and on-demand job worker
// ---------------------------------------------------------------------------

func (c *Container) initJobs() {
	c.Scheduler = jobx.NewScheduler()
	tasks := []jobx.ScheduledTask{
		{Name: warmup.TaskName, Interval: c.Config.Warmup.Interval, Enabled: c.Config.Warmup.Enabled, Task: c.Warmup},
		{Name: mailsender.TaskName, Interval: c.Config.Sender.Interval, Enabled: c.Config.Sender.Enabled, Task: c.Sender},
	}
	for _, t := range tasks {
		if err := c.Scheduler.Register(t); err != nil {
			logx.Fatalf("Failed to register task %q: %v", t.Name, err)
		}
	}

	var queue jobx.Queue
	if c.Redis != nil {
		queue = jobxredis.NewRedisQueue(c.Redis, jobxredis.WithPrefix(c.Config.Redis.Prefix+":jobs"))
	} else {
		queue = jobx.NewMemoryQueue()
	}
	c.Jobs = jobx.NewClient(queue,
		jobx.WithConcurrency(c.Config.Jobs.Concurrency),
		jobx.WithQueues(c.Config.Jobs.Queues...),
		jobx.WithShutdownTimeout(c.Config.Jobs.ShutdownTimeout),
	)
	c.Jobs.RegisterTask(warmup.JobType, c.Warmup)
	c.Jobs.RegisterTask(mailsender.JobType, c.Sender)
	logx.Info("  ✅ Scheduler and job worker configured")
}

// ---------------------------------------------------------------------------
// Admin API
// ---------------------------------------------------------------------------

func (c *Container) initAPI() {
	ac := c.Config.Auth
	c.TokenService = auth.NewJWTService(ac.JWTSecret, ac.TokenTTL, ac.Issuer)
	audit := authinfra.NewLogxAuditService()
	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService, audit)
	c.MessageHandler = messagesapi.NewHandler(c.Renderer, c.Warmup, c.Jobs, audit, c.Config.Render.EmbedErrors)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	go c.Scheduler.Start(ctx)
	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.Errorf("Job worker stopped: %v", err)
		}
	}()
}

// ReloadSettings re-reads the settings file. Settings read per run (warm-up
// logging) pick up the change; the token case mode is fixed at startup.
func (c *Container) ReloadSettings() {
	if err := c.settingsFile.Reload(); err != nil {
		logx.Errorf("Failed to reload settings: %v", err)
		return
	}
	logx.Info("🔁 Settings reloaded")
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}
}
