package channel

import (
	"context"
	"fmt"

	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/vault"
)

type Service interface {
	Create(ctx context.Context, workspaceID uint, req dtos.DTOForChannelCreate) (entities.ChannelAccount, error)
	Get(ctx context.Context, workspaceID, accountID uint) (entities.ChannelAccount, error)
	List(ctx context.Context, workspaceID uint) ([]entities.ChannelAccount, error)
	Delete(ctx context.Context, workspaceID, accountID uint) error
}

type service struct {
	repository Repository
}

func NewService(r Repository) Service {
	return &service{
		repository: r,
	}
}

// Create validates the per-type connection fields and stores the credential
// encrypted. The plaintext credential never reaches the database or any
// response body.
func (s *service) Create(ctx context.Context, workspaceID uint, req dtos.DTOForChannelCreate) (entities.ChannelAccount, error) {
	channelType := entities.ChannelType(req.Type)

	switch channelType {
	case entities.ChannelWhatsAppEvolution:
		if req.BaseURL == "" {
			return entities.ChannelAccount{}, fmt.Errorf(constant.MISSING_FIELD, "base_url")
		}
		if req.InstanceName == "" {
			return entities.ChannelAccount{}, fmt.Errorf(constant.MISSING_FIELD, "instance_name")
		}
	case entities.ChannelFacebookPage, entities.ChannelInstagramBusiness:
		if req.PageID == "" {
			return entities.ChannelAccount{}, fmt.Errorf(constant.MISSING_FIELD, "page_id")
		}
	default:
		return entities.ChannelAccount{}, fmt.Errorf(constant.INVALID_CHANNEL)
	}

	encrypted, err := vault.Encrypt(req.Credential)
	if err != nil {
		return entities.ChannelAccount{}, err
	}

	externalID := req.ExternalID
	if externalID == "" {
		// Webhooks route by this value, so it must match what the
		// provider sends: the instance name for Evolution, the page id
		// for Meta surfaces.
		if channelType == entities.ChannelWhatsAppEvolution {
			externalID = req.InstanceName
		} else {
			externalID = req.PageID
		}
	}

	account := entities.ChannelAccount{
		WorkspaceID:     workspaceID,
		Type:            channelType,
		ExternalID:      externalID,
		DisplayName:     req.DisplayName,
		EncryptedAPIKey: encrypted,
		Metadata: entities.ChannelMetadata{
			BaseURL:      req.BaseURL,
			InstanceName: req.InstanceName,
			PageID:       req.PageID,
		},
	}

	if err := s.repository.CreateChannelAccount(ctx, &account); err != nil {
		return entities.ChannelAccount{}, err
	}
	return account, nil
}

func (s *service) Get(ctx context.Context, workspaceID, accountID uint) (entities.ChannelAccount, error) {
	return s.repository.FindChannelAccount(ctx, workspaceID, accountID)
}

func (s *service) List(ctx context.Context, workspaceID uint) ([]entities.ChannelAccount, error) {
	return s.repository.ListChannelAccounts(ctx, workspaceID)
}

func (s *service) Delete(ctx context.Context, workspaceID, accountID uint) error {
	if _, err := s.repository.FindChannelAccount(ctx, workspaceID, accountID); err != nil {
		return err
	}
	return s.repository.DeleteChannelAccount(ctx, workspaceID, accountID)
}
