package passes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"

	"github.com/go-playground/validator/v10"
)

type PassDBLayer interface {
	InsertPass(ctx context.Context, pass *models.VisitorPass) error
	ListPasses(ctx context.Context) ([]models.VisitorPass, error)
	GetPassByID(ctx context.Context, id int64) (*models.VisitorPass, error)
	DeletePass(ctx context.Context, id int64) (int64, error)
}

// EventPublisher receives created/deleted notifications. Publishing is best effort.
type EventPublisher interface {
	PublishPassEvent(ctx context.Context, event models.PassEvent) error
}

type PassService struct {
	DB       PassDBLayer
	Events   EventPublisher
	Logger   *logger.Logger
	Now      func() time.Time
	validate *validator.Validate
}

func NewPassService(db PassDBLayer, events EventPublisher, log *logger.Logger) *PassService {
	if log == nil {
		log = logger.Discard()
	}
	return &PassService{
		DB:       db,
		Events:   events,
		Logger:   log,
		Now:      time.Now,
		validate: NewValidator(),
	}
}

// NewValidator returns a validator that reports json field names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreatePass validates the intake payload and stores a new pass
func (s *PassService) CreatePass(ctx context.Context, req models.CreatePassRequest) (*models.VisitorPass, error) {
	start, err := ParseDate(req.Date.Start)
	if err != nil {
		return nil, &ValidationError{Field: "date.start", Message: "Invalid date format"}
	}
	end, err := ParseDate(req.Date.End)
	if err != nil {
		return nil, &ValidationError{Field: "date.end", Message: "Invalid date format"}
	}
	if start.After(end) {
		return nil, &ValidationError{Field: "date", Message: "start date must not be after end date"}
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Reason = strings.TrimSpace(req.Reason)

	if err := s.validator().Struct(req); err != nil {
		return nil, translateValidation(err)
	}

	pass := &models.VisitorPass{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Reason:    req.Reason,
		DateStart: start,
		DateEnd:   end,
		CreatedAt: s.now().UTC(),
	}

	if err := s.DB.InsertPass(ctx, pass); err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}

	s.Logger.LogPass("CREATE", pass.ID, fmt.Sprintf("pass for %s valid %s to %s",
		pass.Name, pass.DateStart.Format(time.RFC3339), pass.DateEnd.Format(time.RFC3339)))
	s.publish(ctx, models.PassEventCreated, pass.ID, pass)

	return pass, nil
}

// ListPasses returns all passes ordered by id descending with UTC dates
func (s *PassService) ListPasses(ctx context.Context) ([]models.VisitorPass, error) {
	passes, err := s.DB.ListPasses(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	for i := range passes {
		passes[i].DateStart = passes[i].DateStart.UTC()
		passes[i].DateEnd = passes[i].DateEnd.UTC()
	}
	return passes, nil
}

func (s *PassService) GetPass(ctx context.Context, id int64) (*models.VisitorPass, error) {
	pass, err := s.DB.GetPassByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPassNotFound
		}
		return nil, &StoreError{Op: "get", Err: err}
	}
	return pass, nil
}

// DeletePass removes a pass by id. An id that matches nothing is not an error.
func (s *PassService) DeletePass(ctx context.Context, id int64) error {
	affected, err := s.DB.DeletePass(ctx, id)
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}

	if affected == 0 {
		s.Logger.Debug("PASS", fmt.Sprintf("delete of #%d matched no rows", id))
		return nil
	}

	s.Logger.LogPass("DELETE", id, "pass deleted")
	s.publish(ctx, models.PassEventDeleted, id, nil)
	return nil
}

// ParsePassID validates the raw `id` query values: exactly one integer
func ParsePassID(values []string) (int64, error) {
	if len(values) != 1 {
		return 0, &ValidationError{Field: "id", Message: "Invalid pass ID"}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "id", Message: "Invalid pass ID"}
	}
	return id, nil
}

func (s *PassService) publish(ctx context.Context, eventType string, id int64, pass *models.VisitorPass) {
	if s.Events == nil {
		return
	}
	event := models.PassEvent{
		Type:       eventType,
		PassID:     id,
		Pass:       pass,
		OccurredAt: s.now().UTC(),
	}
	if err := s.Events.PublishPassEvent(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish %s for #%d: %v", eventType, id, err))
	}
}

func (s *PassService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *PassService) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = NewValidator()
	}
	return s.validate
}

func translateValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s is required", fe.Field())}
	case "email":
		return &ValidationError{Field: fe.Field(), Message: "must be a valid email address"}
	default:
		return &ValidationError{Field: fe.Field(), Message: fmt.Sprintf("failed %s validation", fe.Tag())}
	}
}
