package application

import (
	"time"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

type Config struct {
	DefaultRole    domain.Role
	ReplayTTL      time.Duration
	ListPageLimit  int
	TeamRosterRole domain.Role
}

type Service struct {
	cfg           Config
	users         ports.UserRepository
	transactions  ports.TransactionRepository
	webhookEvents ports.WebhookEventRepository
	replay        ports.ReplayStore
	profiles      ports.ProfileFetcher
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Users         ports.UserRepository
	Transactions  ports.TransactionRepository
	WebhookEvents ports.WebhookEventRepository
	Replay        ports.ReplayStore
	Profiles      ports.ProfileFetcher
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.DefaultRole
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = 24 * time.Hour
	}
	if cfg.ListPageLimit <= 0 {
		cfg.ListPageLimit = 100
	}
	if cfg.TeamRosterRole == "" {
		cfg.TeamRosterRole = domain.RoleAgent
	}
	return &Service{
		cfg:           cfg,
		users:         deps.Users,
		transactions:  deps.Transactions,
		webhookEvents: deps.WebhookEvents,
		replay:        deps.Replay,
		profiles:      deps.Profiles,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
