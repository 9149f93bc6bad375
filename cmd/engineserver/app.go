package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/convoflow/workflow-engine/internal/api"
	"github.com/convoflow/workflow-engine/internal/arbitration"
	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/config"
	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/engine"
	"github.com/convoflow/workflow-engine/internal/engine/inmemengine"
	"github.com/convoflow/workflow-engine/internal/engine/temporalengine"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/llm/providers/anthropicprovider"
	"github.com/convoflow/workflow-engine/internal/llm/providers/openaiprovider"
	"github.com/convoflow/workflow-engine/internal/lock"
	"github.com/convoflow/workflow-engine/internal/lock/inmemlock"
	"github.com/convoflow/workflow-engine/internal/lock/redislock"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/queue"
	"github.com/convoflow/workflow-engine/internal/queue/inmem"
	"github.com/convoflow/workflow-engine/internal/queue/natsqueue"
	"github.com/convoflow/workflow-engine/internal/scheduling"
	"github.com/convoflow/workflow-engine/internal/sideeffects"
	"github.com/convoflow/workflow-engine/internal/store"
	storeinmem "github.com/convoflow/workflow-engine/internal/store/inmem"
	"github.com/convoflow/workflow-engine/internal/store/mongostore"
	"github.com/convoflow/workflow-engine/internal/store/postgres"
	"github.com/convoflow/workflow-engine/internal/telemetry"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// app bundles every subsystem a running process needs, assembled once by
// buildApp and torn down by its own Close. serve and worker differ only in
// which of these pieces they start.
type app struct {
	cfg *config.Config
	log telemetry.Logger

	eng        engine.Engine
	temporalEg *temporalengine.Engine // non-nil only when cfg.Temporal.Backend == "temporal"

	queue  queue.Queue
	locker lock.Locker

	tenants           store.Tenants
	workflows         store.Workflows
	executions        store.Executions
	steps             store.Steps
	settings          store.BusinessSettings
	knowledgeDocs     store.KnowledgeDocs
	conversations     store.Conversations
	leads             store.Leads
	tickets           store.Tickets
	appointmentTypes  store.AppointmentTypes
	availabilityRules store.AvailabilityRules
	appointments      store.Appointments

	dispatcher *dispatch.Dispatcher

	closers []func() error
}

// buildApp wires every subsystem from cfg, choosing the inmem or
// production backend per config section: the Backend field for queue,
// redis and temporal, the DSN for the database (empty or "inmem" selects
// the in-memory store). This
// mirrors the teacher's own habit of a single composition root (goa-ai's
// demo main) rather than a DI container: one function, read top to
// bottom, building concretes and handing them to the next layer up.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("engineserver: build logger: %w", err)
	}
	metrics := telemetry.NewPrometheusMetrics(prometheus.NewRegistry())

	a := &app{cfg: cfg, log: log}

	if err := a.buildStores(ctx); err != nil {
		return nil, err
	}
	if err := a.buildQueue(); err != nil {
		return nil, err
	}
	if err := a.buildLocker(); err != nil {
		return nil, err
	}
	if err := a.buildEngine(); err != nil {
		return nil, err
	}

	gateway, err := buildLLMGateway(cfg.LLM, log, metrics)
	if err != nil {
		return nil, err
	}

	// Outbound delivery: every node executor and the fallback chatbot take
	// channel.Sender as a dependency, but spec.md models no WhatsApp
	// credential fields on Config (those live on a tenant's
	// BusinessSettings, resolved per-send rather than once at startup).
	// Wiring a concrete whatsapp.Client here would hardcode one tenant's
	// number for the whole process, so Sender stays nil: deliverReply
	// stores the reply against the conversation transcript instead of
	// pushing it out-of-band, and the node executors do the same for web
	// participants (trigger user_id) while sending nothing to WhatsApp ones.
	var sender channel.Sender

	schedulingSvc := scheduling.New(a.appointmentTypes, a.availabilityRules, a.appointments)

	bus := hooks.NewBus()
	emitter := &sideeffects.Emitter{
		Leads:         a.leads,
		Tickets:       a.tickets,
		Conversations: a.conversations,
		Sender:        sender,
		Bus:           bus,
	}

	registry := buildRegistry(gateway, sender, a.conversations, a.tickets, a.leads, schedulingSvc)

	a.dispatcher = dispatch.New(dispatch.Dispatcher{
		Engine:           a.eng,
		Queue:            a.queue,
		Locker:           a.locker,
		Resolver:         &arbitration.Resolver{Executions: a.executions, Workflows: a.workflows},
		Registry:         registry,
		Emitter:          emitter,
		Tenants:          a.tenants,
		Workflows:        a.workflows,
		Executions:       a.executions,
		Steps:            a.steps,
		BusinessSettings: a.settings,
		KnowledgeDocs:    a.knowledgeDocs,
		Conversations:    a.conversations,
		LLM:              gateway,
		Sender:           sender,
		Bus:              bus,
		Log:              log,
	})

	if err := a.dispatcher.RegisterWithEngine(ctx); err != nil {
		return nil, fmt.Errorf("engineserver: register dispatcher with engine: %w", err)
	}

	return a, nil
}

func (a *app) buildStores(ctx context.Context) error {
	if a.cfg.Database.DSN == "" || a.cfg.Database.DSN == "inmem" {
		st := storeinmem.New()
		a.tenants, a.workflows, a.executions, a.steps = st.Tenants(), st.Workflows(), st.Executions(), st.Steps()
		a.settings, a.knowledgeDocs = st.BusinessSettings(), st.KnowledgeDocs()
		a.leads, a.tickets = st.Leads(), st.Tickets()
		a.conversations = st.Conversations()
		a.appointmentTypes, a.availabilityRules, a.appointments = st.AppointmentTypes(), st.AvailabilityRules(), st.Appointments()
		return nil
	}

	db, err := postgres.Open(a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("engineserver: open postgres: %w", err)
	}
	a.tenants = postgres.NewTenants(db)
	a.workflows = postgres.NewWorkflows(db)
	a.executions = postgres.NewExecutions(db)
	a.steps = postgres.NewSteps(db)
	a.settings = postgres.NewBusinessSettings(db)
	a.knowledgeDocs = postgres.NewKnowledgeDocs(db)
	a.leads = postgres.NewLeads(db)
	a.tickets = postgres.NewTickets(db)
	a.appointmentTypes = postgres.NewAppointmentTypes(db)
	a.availabilityRules = postgres.NewAvailabilityRules(db)
	a.appointments = postgres.NewAppointments(db)

	// Conversation transcripts go to Mongo when mongo.uri is set (config
	// gives it a default) and to Postgres (NewConversations) only when it
	// is empty, matching original_source's split between the relational
	// CRM tables and the document-shaped chat log.
	a.conversations = postgres.NewConversations(db)
	if a.cfg.Mongo.URI != "" {
		mongo, err := mongostore.Connect(ctx, mongostore.Options{
			URI:      a.cfg.Mongo.URI,
			Database: a.cfg.Mongo.Database,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("engineserver: connect mongo: %w", err)
		}
		a.conversations = mongo
		a.closers = append(a.closers, func() error { return mongo.Disconnect(context.Background()) })
	}
	return nil
}

func (a *app) buildQueue() error {
	switch a.cfg.Queue.Backend {
	case "", "inmem":
		a.queue = inmem.New(64)
	case "nats":
		q, err := natsqueue.New(natsqueue.Options{
			URL:        a.cfg.Queue.NATSURL,
			Subject:    a.cfg.Queue.Subject,
			QueueGroup: a.cfg.Queue.QueueGroup,
		})
		if err != nil {
			return fmt.Errorf("engineserver: connect nats: %w", err)
		}
		a.queue = q
	default:
		return fmt.Errorf("engineserver: unknown queue backend %q", a.cfg.Queue.Backend)
	}
	a.closers = append(a.closers, a.queue.Close)
	return nil
}

func (a *app) buildLocker() error {
	switch a.cfg.Redis.Backend {
	case "", "inmem":
		a.locker = inmemlock.New()
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
		a.locker = redislock.New(rc)
		a.closers = append(a.closers, rc.Close)
	default:
		return fmt.Errorf("engineserver: unknown redis backend %q", a.cfg.Redis.Backend)
	}
	return nil
}

func (a *app) buildEngine() error {
	switch a.cfg.Temporal.Backend {
	case "", "inmem":
		a.eng = inmemengine.New()
	case "temporal":
		clientOpts := client.Options{HostPort: a.cfg.Temporal.HostPort, Namespace: a.cfg.Temporal.Namespace}
		eg, err := temporalengine.New(temporalengine.Options{
			ClientOptions: &clientOpts,
			TaskQueue:     a.cfg.Temporal.TaskQueue,
		})
		if err != nil {
			return fmt.Errorf("engineserver: build temporal engine: %w", err)
		}
		a.eng = eg
		a.temporalEg = eg
		a.closers = append(a.closers, func() error { eg.Stop(); return nil })
	default:
		return fmt.Errorf("engineserver: unknown temporal backend %q", a.cfg.Temporal.Backend)
	}
	return nil
}

func buildLogger(cfg config.LogConfig) (telemetry.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(firstNonEmpty(cfg.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("engineserver: parse log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = level

	zl, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("engineserver: build zap logger: %w", err)
	}
	return telemetry.NewZapLogger(zl), nil
}

func buildLLMGateway(cfg config.LLMConfig, log telemetry.Logger, metrics telemetry.Metrics) (*llm.Gateway, error) {
	var providers []llm.Provider
	if cfg.OpenAIAPIKey != "" {
		p, err := openaiprovider.New(openaiprovider.Options{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		if err != nil {
			return nil, fmt.Errorf("engineserver: build openai provider: %w", err)
		}
		providers = append(providers, p)
	}
	if cfg.AnthropicAPIKey != "" {
		p, err := anthropicprovider.New(anthropicprovider.Options{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel})
		if err != nil {
			return nil, fmt.Errorf("engineserver: build anthropic provider: %w", err)
		}
		providers = append(providers, p)
	}

	return llm.New(providers,
		llm.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		llm.WithLogger(log),
		llm.WithMetrics(metrics),
	), nil
}

func buildRegistry(gateway *llm.Gateway, sender channel.Sender, conversations store.Conversations, tickets store.Tickets, leads store.Leads, sched *scheduling.Service) *nodeexec.Registry {
	reg := nodeexec.NewRegistry()
	reg.Register(workflow.NodeStart, nodeexec.StartExecutor{})
	reg.Register(workflow.NodeEnd, nodeexec.EndExecutor{})
	reg.Register(workflow.NodeAction, nodeexec.ActionExecutor{Sender: sender, Conversations: conversations, Tickets: tickets})
	reg.Register(workflow.NodeAIInference, nodeexec.AIInferenceExecutor{Generator: gateway, Sender: sender, Conversations: conversations})
	reg.Register(workflow.NodeAIExtract, nodeexec.AIExtractExecutor{Generator: gateway})
	reg.Register(workflow.NodeHTTPRequest, nodeexec.HTTPRequestExecutor{Client: &http.Client{Timeout: 10 * time.Second}})
	reg.Register(workflow.NodeLeadCapture, nodeexec.LeadCaptureExecutor{Leads: leads})
	reg.Register(workflow.NodeAppointmentBooking, nodeexec.AppointmentBookingExecutor{Scheduling: sched, Generator: gateway, Sender: sender, Conversations: conversations})
	reg.Register(workflow.NodeCondition, nodeexec.ConditionExecutor{})
	reg.Register(workflow.NodeWaitForReply, nodeexec.WaitForReplyExecutor{})
	reg.Register(workflow.NodeTimeDelay, nodeexec.TimeDelayExecutor{})
	return reg
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(context.Background(), "engineserver: close error", "error", err.Error())
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func buildAPIServer(a *app) *api.Server {
	return api.New(api.Config{
		Host:                a.cfg.Server.Host,
		Port:                a.cfg.Server.Port,
		WhatsAppVerifyToken: a.cfg.Channels.WhatsAppVerifyToken,
	}, a.dispatcher, a.workflows, a.executions, a.log)
}
