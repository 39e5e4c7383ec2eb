package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/platelens/platelens/internal/domain"
	"github.com/platelens/platelens/internal/llm"
	"github.com/platelens/platelens/internal/photostore"
	"github.com/platelens/platelens/internal/search"
)

var (
	// ErrSessionNotFound reports an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrWrongStage reports an operation applied to a session whose stage
	// does not allow it, such as answering a session that never asked.
	ErrWrongStage = errors.New("operation not valid in current session stage")
)

// maxToolIterations caps model round trips per user action so a model stuck
// requesting searches cannot loop forever.
const maxToolIterations = 4

// sessionRepository is the subset of store.SessionStore that MealService requires.
type sessionRepository interface {
	Create(ctx context.Context) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// photoRepository is the subset of store.MealPhotoStore that MealService requires.
type photoRepository interface {
	Create(ctx context.Context, sessionID, storageKey, mimeType string) (*domain.MealPhoto, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.MealPhoto, error)
}

// turnRepository is the subset of store.TurnStore that MealService requires.
type turnRepository interface {
	Create(ctx context.Context, sessionID string, round int, prompt, response string) (*domain.ConversationTurn, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]*domain.ConversationTurn, error)
}

// estimateRepository is the subset of store.EstimateStore that MealService requires.
type estimateRepository interface {
	Replace(ctx context.Context, sessionID string, items []*domain.FoodItemEstimate) ([]*domain.FoodItemEstimate, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]*domain.FoodItemEstimate, error)
}

// Searcher runs the web lookups behind the model's search tool. A nil
// Searcher means the tool is never offered to the model.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

type MealService struct {
	sessions     sessionRepository
	photos       photoRepository
	turns        turnRepository
	estimates    estimateRepository
	photoStg     photostore.PhotoStore
	model        llm.Client
	searchAPI    Searcher
	prompts      *llm.PromptSource
	maxFollowups int
	logger       *slog.Logger
}

func NewMealService(
	sessions sessionRepository,
	photos photoRepository,
	turns turnRepository,
	estimates estimateRepository,
	photoStg photostore.PhotoStore,
	model llm.Client,
	searchAPI Searcher,
	prompts *llm.PromptSource,
	maxFollowups int,
	logger *slog.Logger,
) *MealService {
	return &MealService{
		sessions:     sessions,
		photos:       photos,
		turns:        turns,
		estimates:    estimates,
		photoStg:     photoStg,
		model:        model,
		searchAPI:    searchAPI,
		prompts:      prompts,
		maxFollowups: maxFollowups,
		logger:       logger,
	}
}

// SessionDetail bundles a session with its photo, estimates, derived totals
// and conversation history for rendering.
type SessionDetail struct {
	*domain.Session
	Photo *domain.MealPhoto
	Items []*domain.FoodItemEstimate
	Total domain.MealTotal
	Turns []*domain.ConversationTurn
}

// CreateSession stores the uploaded photo and opens a session around it. The
// caller has already verified the bytes are a supported image format.
func (s *MealService) CreateSession(ctx context.Context, imageData []byte, mimeType string) (*domain.Session, error) {
	session, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	storageKey, err := s.photoStg.Save(ctx, fmt.Sprintf("session_%s", session.ID), mimeType, bytes.NewReader(imageData))
	if err != nil {
		if dbErr := s.sessions.Delete(ctx, session.ID); dbErr != nil {
			s.logger.Error("failed to roll back session after save error", "session_id", session.ID, "error", dbErr)
		}
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "session_id", session.ID, "storage_key", storageKey)

	if _, err := s.photos.Create(ctx, session.ID, storageKey, mimeType); err != nil {
		if stgErr := s.photoStg.Delete(ctx, storageKey); stgErr != nil {
			s.logger.Error("failed to roll back photo file", "storage_key", storageKey, "error", stgErr)
		}
		if dbErr := s.sessions.Delete(ctx, session.ID); dbErr != nil {
			s.logger.Error("failed to roll back session", "session_id", session.ID, "error", dbErr)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	s.logger.Info("session created", "session_id", session.ID, "mime_type", mimeType, "bytes", len(imageData))
	return session, nil
}

func (s *MealService) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.detail(ctx, session)
}

// Analyze runs the first model pass over a freshly uploaded photo. The reply
// decides where the session lands: a breakdown completes it, a question parks
// it awaiting the user's answer, anything else completes it without numbers.
func (s *MealService) Analyze(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Stage != domain.StageUploaded {
		return nil, fmt.Errorf("%w: analyze needs a fresh upload, session is %q", ErrWrongStage, session.Stage)
	}

	photo, err := s.photos.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	if photo == nil {
		return nil, fmt.Errorf("session %s has no photo", sessionID)
	}

	img, err := s.loadImage(ctx, photo)
	if err != nil {
		return nil, err
	}

	s.logger.Info("analysis started", "session_id", sessionID)
	msg := llm.AnalyzeMessage(img)
	reply, err := s.converse(ctx, []llm.Message{msg})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	if _, err := s.turns.Create(ctx, sessionID, 0, msg.Text, reply); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	if err := s.applyReply(ctx, session, reply, false); err != nil {
		return nil, err
	}
	s.logger.Info("analysis complete", "session_id", sessionID, "stage", session.Stage)
	return s.detail(ctx, session)
}

// Answer relays the user's free-text answer to the model's pending question,
// consuming one follow-up round. On the last allowed round the closing
// directive rides along, so whatever comes back ends the session.
func (s *MealService) Answer(ctx context.Context, sessionID, answer string) (*SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Stage != domain.StageAwaitingAnswer {
		return nil, fmt.Errorf("%w: no question is pending, session is %q", ErrWrongStage, session.Stage)
	}

	round := session.Rounds + 1
	final := round >= s.maxFollowups
	msg := llm.AnswerMessage(answer, final)

	s.logger.Info("answer submitted", "session_id", sessionID, "round", round, "final", final)
	reply, err := s.resume(ctx, session, msg)
	if err != nil {
		return nil, err
	}

	if _, err := s.turns.Create(ctx, sessionID, round, msg.Text, reply); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	session.Rounds = round
	if err := s.applyReply(ctx, session, reply, final); err != nil {
		return nil, err
	}
	s.logger.Info("answer round complete", "session_id", sessionID, "stage", session.Stage)
	return s.detail(ctx, session)
}

// Finalize skips the pending question and demands the breakdown from what
// the model already knows.
func (s *MealService) Finalize(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Stage != domain.StageAwaitingAnswer {
		return nil, fmt.Errorf("%w: no question is pending, session is %q", ErrWrongStage, session.Stage)
	}

	round := session.Rounds + 1
	msg := llm.FinalizeMessage()

	s.logger.Info("finalize requested", "session_id", sessionID, "round", round)
	reply, err := s.resume(ctx, session, msg)
	if err != nil {
		return nil, err
	}

	if _, err := s.turns.Create(ctx, sessionID, round, msg.Text, reply); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	session.Rounds = round
	if err := s.applyReply(ctx, session, reply, true); err != nil {
		return nil, err
	}
	s.logger.Info("finalize complete", "session_id", sessionID, "stage", session.Stage)
	return s.detail(ctx, session)
}

// Delete removes a session and everything hanging off it. Database rows
// cascade with the session; the stored photo bytes do not, so they are
// removed here.
func (s *MealService) Delete(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}

	photo, err := s.photos.GetBySessionID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get photo: %w", err)
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if photo != nil {
		if err := s.photoStg.Delete(ctx, photo.StorageKey); err != nil {
			s.logger.Error("failed to delete photo file", "storage_key", photo.StorageKey, "error", err)
		}
	}

	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// OpenPhoto streams the stored photo bytes for a session.
func (s *MealService) OpenPhoto(ctx context.Context, sessionID string) (io.ReadCloser, string, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, "", ErrSessionNotFound
	}

	photo, err := s.photos.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get photo: %w", err)
	}
	if photo == nil {
		return nil, "", ErrSessionNotFound
	}

	rc, _, err := s.photoStg.Get(ctx, photo.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load photo bytes: %w", err)
	}
	return rc, photo.MimeType, nil
}

// resume rebuilds the conversation from the recorded turns and sends msg as
// the next user message.
func (s *MealService) resume(ctx context.Context, session *domain.Session, msg llm.Message) (string, error) {
	photo, err := s.photos.GetBySessionID(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("failed to get photo: %w", err)
	}
	if photo == nil {
		return "", fmt.Errorf("session %s has no photo", session.ID)
	}

	history, err := s.history(ctx, session.ID, photo)
	if err != nil {
		return "", err
	}

	reply, err := s.converse(ctx, append(history, msg))
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return reply, nil
}

// history replays a session's recorded turns as chat messages. The photo
// rides on the first user message only; later rounds refer back to it.
func (s *MealService) history(ctx context.Context, sessionID string, photo *domain.MealPhoto) ([]llm.Message, error) {
	turns, err := s.turns.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	img, err := s.loadImage(ctx, photo)
	if err != nil {
		return nil, err
	}

	msgs := make([]llm.Message, 0, len(turns)*2)
	for i, turn := range turns {
		user := llm.Message{Role: llm.RoleUser, Text: turn.Prompt}
		if i == 0 {
			user.Images = []llm.ImageData{img}
		}
		msgs = append(msgs, user, llm.Message{Role: llm.RoleModel, Text: turn.Response})
	}
	return msgs, nil
}

func (s *MealService) loadImage(ctx context.Context, photo *domain.MealPhoto) (llm.ImageData, error) {
	rc, _, err := s.photoStg.Get(ctx, photo.StorageKey)
	if err != nil {
		return llm.ImageData{}, fmt.Errorf("failed to load photo bytes: %w", err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			s.logger.Error("failed to close photo reader", "error", err)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return llm.ImageData{}, fmt.Errorf("failed to read photo bytes: %w", err)
	}
	return llm.ImageData{MimeType: photo.MimeType, Data: data}, nil
}

// converse sends the conversation to the model, executing requested web
// searches and feeding the results back until the model produces text.
func (s *MealService) converse(ctx context.Context, messages []llm.Message) (string, error) {
	req := &llm.ChatRequest{
		System:   s.prompts.Prompt(),
		Messages: messages,
	}
	if s.searchAPI != nil {
		req.Tools = []llm.Tool{llm.WebSearchTool()}
	}

	for i := 0; i < maxToolIterations; i++ {
		resp, err := s.model.Chat(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 || s.searchAPI == nil {
			return resp.Text, nil
		}

		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleModel,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, llm.ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				Content: s.runSearch(ctx, call),
			})
		}
		req.Messages = append(req.Messages, llm.Message{Role: llm.RoleTool, ToolResults: results})
	}

	return "", fmt.Errorf("model did not produce a final response after %d tool rounds", maxToolIterations)
}

// runSearch executes one tool call. Search failures are reported back to the
// model as the tool result rather than failing the round; the prompt tells it
// to fall back to general knowledge.
func (s *MealService) runSearch(ctx context.Context, call llm.ToolCall) string {
	query, _ := call.Args["query"].(string)
	if query == "" {
		return "Error performing search: empty query."
	}

	s.logger.Info("web search requested", "query", query)
	results, err := s.searchAPI.Search(ctx, query)
	if err != nil {
		s.logger.Error("web search failed", "query", query, "error", err)
		return fmt.Sprintf("Error performing search: %v. Estimate from general knowledge instead.", err)
	}
	return search.FormatResults(results)
}

// applyReply moves the session according to the interpreted model reply.
// When final is set a question no longer counts; the session completes with
// whatever text came back.
func (s *MealService) applyReply(ctx context.Context, session *domain.Session, reply string, final bool) error {
	interp := llm.Interpret(reply)
	session.RawResponse = reply

	switch {
	case interp.Kind == llm.ReplyBreakdown:
		items := make([]*domain.FoodItemEstimate, 0, len(interp.Items))
		for _, it := range interp.Items {
			items = append(items, &domain.FoodItemEstimate{
				SessionID:    session.ID,
				Name:         it.Item,
				Portion:      it.Portion,
				Calories:     float64(it.Calories),
				ProteinGrams: float64(it.ProteinGrams),
				CarbsGrams:   float64(it.CarbsGrams),
				FatGrams:     float64(it.FatGrams),
			})
		}
		if _, err := s.estimates.Replace(ctx, session.ID, items); err != nil {
			return fmt.Errorf("failed to store estimates: %w", err)
		}
		session.Stage = domain.StageDone
		session.Question = ""
		s.logger.Info("breakdown stored", "session_id", session.ID, "items", len(items))

	case interp.Kind == llm.ReplyQuestion && !final:
		session.Stage = domain.StageAwaitingAnswer
		session.Question = interp.Question
		s.logger.Info("model asked a question", "session_id", session.ID)

	default:
		// Opaque text, or a question after the closing directive. The raw
		// reply is all the user gets.
		session.Stage = domain.StageDone
		session.Question = ""
		s.logger.Warn("session completed without a breakdown", "session_id", session.ID, "kind", interp.Kind.String())
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *MealService) detail(ctx context.Context, session *domain.Session) (*SessionDetail, error) {
	photo, err := s.photos.GetBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	items, err := s.estimates.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	turns, err := s.turns.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	return &SessionDetail{
		Session: session,
		Photo:   photo,
		Items:   items,
		Total:   domain.TotalOf(items),
		Turns:   turns,
	}, nil
}
