package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// TimelineLimit caps the messages on the home timeline.
const TimelineLimit = 100

// FeedPublisher fans a new message out to the given followers.
type FeedPublisher interface {
	PublishMessage(ctx context.Context, msg *models.Message, followerIDs []uint) error
}

// MessageDetail is a message with the users who liked it.
type MessageDetail struct {
	Message *models.Message `json:"message"`
	LikedBy []models.User   `json:"liked_by"`
}

// MessageService covers posting, reading and liking messages.
type MessageService struct {
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
	followRepo  repository.FollowRepository
	publisher   FeedPublisher
}

// NewMessageService creates a MessageService. publisher may be nil.
func NewMessageService(
	messageRepo repository.MessageRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
	publisher FeedPublisher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		followRepo:  followRepo,
		publisher:   publisher,
	}
}

// Post stores a new message for userID and notifies their followers.
// Notification failures are logged and do not fail the post.
func (s *MessageService) Post(ctx context.Context, userID uint, text string) (*models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Post",
		attribute.Int64("user.id", int64(userID)))
	defer span.End()

	text, err := validation.ValidateMessageText(text)
	if err != nil {
		return nil, models.NewFieldValidationError(map[string]string{"text": err.Error()})
	}

	msg := &models.Message{Text: text, UserID: userID}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.MessagesPostedTotal.Inc()

	if s.publisher != nil {
		s.notifyFollowers(ctx, msg)
	}
	return msg, nil
}

func (s *MessageService) notifyFollowers(ctx context.Context, msg *models.Message) {
	ids, err := s.followRepo.FollowerIDs(ctx, msg.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load followers for feed",
			slog.Uint64("message_id", uint64(msg.ID)), slog.String("error", err.Error()))
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := s.publisher.PublishMessage(ctx, msg, ids); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish message to feed",
			slog.Uint64("message_id", uint64(msg.ID)), slog.String("error", err.Error()))
	}
}

// Get returns the message and the users who liked it.
func (s *MessageService) Get(ctx context.Context, id uint) (*MessageDetail, error) {
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.likeRepo.LikingUsers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MessageDetail{Message: msg, LikedBy: users}, nil
}

// Delete removes a message. Only its author may delete it.
func (s *MessageService) Delete(ctx context.Context, actorID, messageID uint) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own messages")
	}
	return s.messageRepo.Delete(ctx, messageID)
}

func (s *MessageService) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.messageRepo.ListByUser(ctx, userID, limit)
}

// Timeline returns the newest messages by userID and the users they follow.
func (s *MessageService) Timeline(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.messageRepo.Timeline(ctx, userID, TimelineLimit)
}

// Recent returns the newest messages from everyone.
func (s *MessageService) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	return s.messageRepo.Recent(ctx, limit)
}

// ToggleLike likes or unlikes a message and reports the new state.
// Users cannot like their own messages.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.UserID == userID {
		return false, models.NewValidationError("You cannot like your own message")
	}
	return s.likeRepo.Toggle(ctx, userID, messageID)
}

func (s *MessageService) LikingUsers(ctx context.Context, messageID uint) ([]models.User, error) {
	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		return nil, err
	}
	return s.likeRepo.LikingUsers(ctx, messageID)
}

func (s *MessageService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.likeRepo.LikedMessages(ctx, userID)
}

// LikedMessageIDs lets views mark which messages the viewer already liked.
func (s *MessageService) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.likeRepo.LikedMessageIDs(ctx, userID)
}
