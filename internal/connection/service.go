// Package connection はユーザー間のつながりリクエストを管理する。
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/linkup/internal/model"
	"github.com/hitoshi/linkup/internal/repository"
)

// Service はつながりリクエストの送信・一覧・決定を提供する。
// リクエストは (送信者, 受信者) の順序付きペアごとに高々1件。
// 決定は受信者のみが行え、一度決定したら変更できない。
type Service struct {
	connectionRepo repository.ConnectionRepository
	userRepo       repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(connectionRepo repository.ConnectionRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		connectionRepo: connectionRepo,
		userRepo:       userRepo,
	}
}

// SendRequest は受信者への保留中リクエストを作成する。
// 受信者が存在しない場合はUSER_NOT_FOUND、自分自身へのリクエストは検証エラー、
// 同一ペアのリクエストが既に存在する場合はDUPLICATE_REQUESTを返す。
// 逆向き（受信者→送信者）のリクエストの有無は影響しない。
func (s *Service) SendRequest(ctx context.Context, senderID, recipientID string) error {
	if recipientID == "" {
		return model.NewValidationError("接続先ユーザーIDは必須です")
	}
	if senderID == recipientID {
		return model.NewValidationError("自分自身につながりリクエストは送れません")
	}

	recipient, err := s.userRepo.FindByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if recipient == nil {
		return model.NewUserNotFoundError()
	}

	// ペア重複チェック（INSERT時の一意制約違反もConflictとして扱い、競合を塞ぐ）
	existing, err := s.connectionRepo.FindByPair(ctx, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to check existing request: %w", err)
	}
	if existing != nil {
		return model.NewDuplicateRequestError()
	}

	req := &model.ConnectionRequest{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Accepted:    nil,
		CreatedAt:   time.Now(),
	}
	if err := s.connectionRepo.Create(ctx, req); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewDuplicateRequestError()
		}
		return fmt.Errorf("failed to create connection request: %w", err)
	}

	slog.Info("connection request sent",
		slog.String("request_id", req.ID),
		slog.String("sender_id", senderID),
		slog.String("recipient_id", recipientID),
	)
	return nil
}

// ListOutgoing は指定ユーザーが送信したリクエストを受信者投影付きで返す。
func (s *Service) ListOutgoing(ctx context.Context, userID string) ([]model.ConnectionWithUser, error) {
	requests, err := s.connectionRepo.ListBySender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", err)
	}
	return requests, nil
}

// ListIncoming は指定ユーザーが受信したリクエストを送信者投影付きで返す。
func (s *Service) ListIncoming(ctx context.Context, userID string) ([]model.ConnectionWithUser, error) {
	requests, err := s.connectionRepo.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	return requests, nil
}

// Decide はリクエストへの決定（承認/拒否）を永続化する。
// 決定できるのは受信者本人のみ。保留中→決定済みの遷移は一方向で、
// 決定済みのリクエストへの再決定はREQUEST_DECIDEDになる。
func (s *Service) Decide(ctx context.Context, userID, requestID string, action model.DecisionAction) error {
	if !action.Valid() {
		return model.NewValidationError("決定操作はacceptまたはrejectのいずれかです")
	}

	req, err := s.connectionRepo.FindByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to find connection request: %w", err)
	}
	if req == nil {
		return model.NewRequestNotFoundError(requestID)
	}
	if req.RecipientID != userID {
		return model.NewNotOwnerError()
	}
	if !req.Pending() {
		return model.NewRequestDecidedError()
	}

	accepted := action == model.DecisionAccept
	if err := s.connectionRepo.UpdateDecision(ctx, requestID, accepted); err != nil {
		return fmt.Errorf("failed to persist decision: %w", err)
	}

	slog.Info("connection request decided",
		slog.String("request_id", requestID),
		slog.String("recipient_id", userID),
		slog.Bool("accepted", accepted),
	)
	return nil
}
