package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-gatepass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPassCreator struct {
	mock.Mock
}

func (m *MockPassCreator) CreatePass(ctx context.Context, req models.CreatePassRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)

func newTestForm(creator PassCreator) *Form {
	f := NewForm(creator)
	f.now = func() time.Time { return fixedNow }
	f.Reset()
	return f
}

func fill(f *Form) {
	f.Fields.Name = "  A  "
	f.Fields.Email = "a@x.com"
	f.Fields.Phone = "555-0100"
	f.Fields.Address = "addr"
	f.Fields.Reason = "meeting"
	f.Fields.Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.Fields.End = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
}

func TestResetDefaults(t *testing.T) {
	f := newTestForm(new(MockPassCreator))

	assert.Empty(t, f.Fields.Name)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), f.Fields.Start)
	assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), f.Fields.End)
	assert.Empty(t, f.Message)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Fields)
		fields []string
	}{
		{"valid", func(*Fields) {}, nil},
		{"missing name", func(f *Fields) { f.Name = "   " }, []string{"Name"}},
		{"bad email", func(f *Fields) { f.Email = "nope" }, []string{"Email"}},
		{"empty email allowed", func(f *Fields) { f.Email = "" }, nil},
		{"missing phone and address", func(f *Fields) { f.Phone = ""; f.Address = "" }, []string{"Address", "Phone"}},
		{"end before start", func(f *Fields) { f.End = f.Start.Add(-24 * time.Hour) }, []string{"End"}},
		{"no dates", func(f *Fields) { f.Start = time.Time{}; f.End = time.Time{} }, []string{"End", "Start"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestForm(new(MockPassCreator))
			fill(f)
			tt.modify(&f.Fields)

			err := f.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			for _, name := range tt.fields {
				assert.Contains(t, fieldErrs, name)
			}
			assert.Len(t, fieldErrs, len(tt.fields))
		})
	}
}

func TestFieldErrorsMessage(t *testing.T) {
	err := FieldErrors{"Phone": "Please enter a phone number", "Name": "Please enter a name"}
	assert.Equal(t, "Name: Please enter a name; Phone: Please enter a phone number", err.Error())
}

func TestSubmitSuccess(t *testing.T) {
	creator := new(MockPassCreator)
	creator.On("CreatePass", mock.Anything, models.CreatePassRequest{
		Name:    "A",
		Email:   "a@x.com",
		Phone:   "555-0100",
		Address: "addr",
		Reason:  "meeting",
		Date:    models.DateRange{Start: "2025-01-01", End: "2025-01-02"},
	}).Return(nil)

	f := newTestForm(creator)
	fill(f)

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, MsgCreated, f.Message)
	creator.AssertExpectations(t)
}

func TestSubmitFailure(t *testing.T) {
	creator := new(MockPassCreator)
	creator.On("CreatePass", mock.Anything, mock.Anything).Return(errors.New("500 Internal Server Error"))

	f := newTestForm(creator)
	fill(f)

	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, MsgFailed, f.Message)
}

func TestSubmitInvalidSkipsService(t *testing.T) {
	creator := new(MockPassCreator)
	f := newTestForm(creator)

	err := f.Submit(context.Background())
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "Please enter a name", fieldErrs["Name"])
	assert.Empty(t, f.Message)
	creator.AssertNotCalled(t, "CreatePass", mock.Anything, mock.Anything)
}
