package services

import (
	"context"
	"fmt"

	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/provider"
)

// ItemService handles the account-linking flow: link-token issuance, public
// token exchange, and registration of the new item with an initial sync.
type ItemService struct {
	items     ItemStore
	secrets   SecretStore
	client    LedgerClient
	sync      *SyncService
	publisher SyncPublisher
	logger    *log.Logger
}

func NewItemService(
	items ItemStore,
	secrets SecretStore,
	client LedgerClient,
	sync *SyncService,
	publisher SyncPublisher,
	logger *log.Logger,
) *ItemService {
	return &ItemService{
		items:     items,
		secrets:   secrets,
		client:    client,
		sync:      sync,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentItems),
	}
}

// CreateLinkToken requests a short-lived token the frontend needs to start
// the provider's linking flow.
func (s *ItemService) CreateLinkToken(ctx context.Context, userID int64) (provider.LinkToken, error) {
	token, err := s.client.CreateLinkToken(ctx, userID)
	if err != nil {
		return provider.LinkToken{}, fmt.Errorf("create link token: %w", err)
	}
	return token, nil
}

// LinkItem exchanges a public token for a durable credential, stores the new
// item with the credential sealed at rest, pulls its accounts, and enqueues
// the initial transaction sync.
func (s *ItemService) LinkItem(ctx context.Context, userID int64, publicToken string, institutionID, institutionName *string) (int64, error) {
	exchange, err := s.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return 0, fmt.Errorf("exchange public token: %w", err)
	}

	sealed, err := s.secrets.Encrypt(exchange.AccessToken)
	if err != nil {
		return 0, fmt.Errorf("seal access token: %w", err)
	}

	if institutionID != nil && institutionName == nil {
		if inst, ierr := s.client.Institution(ctx, *institutionID); ierr == nil {
			institutionName = &inst.Name
		}
	}

	itemID, err := s.items.CreateItem(ctx, core.Item{
		UserID:               userID,
		ProviderItemID:       exchange.ItemID,
		AccessTokenEncrypted: sealed,
		InstitutionID:        institutionID,
		InstitutionName:      institutionName,
	})
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}

	if err := s.sync.SyncAccounts(ctx, itemID); err != nil {
		// Accounts will be retried before the first transaction sync; the
		// link itself has succeeded.
		s.logger.WarnContext(ctx, "initial account sync failed",
			log.FieldItemID, itemID, log.FieldError, err)
	}

	if err := s.publisher.PublishItemSync(ctx, itemID, userID, "initial"); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue initial sync",
			log.FieldItemID, itemID, log.FieldError, err)
	}

	s.logger.InfoContext(ctx, "item linked",
		log.FieldItemID, itemID, log.FieldUserID, userID)
	return itemID, nil
}

// RequestSync enqueues a manual sync for one item after verifying ownership.
func (s *ItemService) RequestSync(ctx context.Context, itemID, userID int64) error {
	if _, err := s.items.ItemByIDAndUser(ctx, itemID, userID); err != nil {
		return err
	}
	return s.publisher.PublishItemSync(ctx, itemID, userID, "manual")
}
