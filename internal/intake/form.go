package intake

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"ms-gatepass/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	MsgCreated = "Pass created successfully!"
	MsgFailed  = "Failed to create pass. Please try again."
)

// VisitingHours is shown above the form
const VisitingHours = "Visitors Timing is 8:00 AM to 7:00 PM"

// defaultValidityDays is the length of the pre-selected date range
const defaultValidityDays = 7

// fieldMessages are the per-field hints shown when validation fails
var fieldMessages = map[string]string{
	"Name":    "Please enter a name",
	"Email":   "Please enter a valid email",
	"Phone":   "Please enter a phone number",
	"Address": "Please enter address",
	"Start":   "Please select a date range",
	"End":     "Please select a date range",
}

type PassCreator interface {
	CreatePass(ctx context.Context, req models.CreatePassRequest) error
}

// Fields is the editable state of the form
type Fields struct {
	Name    string    `validate:"required"`
	Email   string    `validate:"omitempty,email"`
	Phone   string    `validate:"required"`
	Address string    `validate:"required"`
	Reason  string
	Start   time.Time `validate:"required"`
	End     time.Time `validate:"required,gtefield=Start"`
}

// FieldErrors maps a field name to its hint
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, name+": "+e[name])
	}
	return strings.Join(msgs, "; ")
}

type Form struct {
	Fields  Fields
	Message string

	creator  PassCreator
	validate *validator.Validate
	now      func() time.Time
}

func NewForm(creator PassCreator) *Form {
	f := &Form{
		creator:  creator,
		validate: validator.New(),
		now:      time.Now,
	}
	f.Reset()
	return f
}

// Reset restores the defaults: empty fields and a week starting today
func (f *Form) Reset() {
	now := f.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	f.Fields = Fields{
		Start: today,
		End:   today.AddDate(0, 0, defaultValidityDays),
	}
	f.Message = ""
}

func (f *Form) Validate() error {
	f.Fields.Name = strings.TrimSpace(f.Fields.Name)
	f.Fields.Email = strings.TrimSpace(f.Fields.Email)
	f.Fields.Phone = strings.TrimSpace(f.Fields.Phone)
	f.Fields.Address = strings.TrimSpace(f.Fields.Address)
	f.Fields.Reason = strings.TrimSpace(f.Fields.Reason)

	err := f.validate.Struct(f.Fields)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(FieldErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fieldMessages[fe.Field()]
	}
	return out
}

// Request builds the create-pass payload, dates as calendar days
func (f *Form) Request() models.CreatePassRequest {
	return models.CreatePassRequest{
		Name:    f.Fields.Name,
		Email:   f.Fields.Email,
		Phone:   f.Fields.Phone,
		Address: f.Fields.Address,
		Reason:  f.Fields.Reason,
		Date: models.DateRange{
			Start: f.Fields.Start.Format("2006-01-02"),
			End:   f.Fields.End.Format("2006-01-02"),
		},
	}
}

// Submit validates, posts the pass and records the result message.
// Validation failures are returned without contacting the service.
func (f *Form) Submit(ctx context.Context) error {
	if err := f.Validate(); err != nil {
		return err
	}

	if err := f.creator.CreatePass(ctx, f.Request()); err != nil {
		f.Message = MsgFailed
		return err
	}
	f.Message = MsgCreated
	return nil
}
