// Package ruleform holds the editing state of the keyword rule form and the
// sensitivity slider, independent of any UI toolkit.
package ruleform

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/severity"
)

// ErrInvalid is returned by Submit when the draft fails local validation.
// The repository is not called in that case.
var ErrInvalid = errors.New("rule form is invalid")

type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldDPC         Field = "dpc"
	FieldEI          Field = "ei"
	FieldCB          Field = "cb"
)

// validated lists the fields that carry a required check, in display order.
var validated = []Field{FieldTitle, FieldDPC, FieldEI, FieldCB}

var requiredMessages = map[Field]string{
	FieldTitle: "Title is required",
	FieldDPC:   "Select a Data Processing Context",
	FieldEI:    "Select an Ease of Identification",
	FieldCB:    "Select the Circumstances of the Breach",
}

const (
	msgRuleGone    = "This rule no longer exists. Reload the list and try again."
	msgSaveFailed  = "Could not save the rule. Your changes are kept, try again."
	msgServerCheck = "The server rejected some fields."
)

type Mode int

const (
	ModeAdd Mode = iota
	ModeEdit
)

type State int

const (
	StatePristine State = iota
	StateTouched
	StateSubmittedInvalid
	StateSubmittedValid
	StateSaved
)

func (s State) String() string {
	switch s {
	case StatePristine:
		return "pristine"
	case StateTouched:
		return "touched"
	case StateSubmittedInvalid:
		return "submitted_invalid"
	case StateSubmittedValid:
		return "submitted_valid"
	case StateSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Form is a rule draft plus the bookkeeping needed to decide which errors
// to show. The draft is only ever changed by the setters.
type Form struct {
	mode   Mode
	ruleID string

	title       string
	description string
	dpc         *float64
	ei          *float64
	cb          *float64

	touched         map[Field]bool
	submitAttempted bool
	saved           bool

	serverErrors map[Field]string
	topError     string
	needsRefresh bool
}

// NewAddForm returns an empty form with every scored field unselected.
func NewAddForm() *Form {
	return &Form{mode: ModeAdd, touched: map[Field]bool{}, serverErrors: map[Field]string{}}
}

// NewEditForm pre-fills the form from an existing rule.
func NewEditForm(rule models.ActiveKeywordRule) *Form {
	f := NewAddForm()
	f.mode = ModeEdit
	f.ruleID = rule.ID
	f.title = rule.Title
	f.description = rule.Description
	f.dpc = models.Float(float64(rule.DPC))
	f.ei = models.Float(rule.EI)
	f.cb = models.Float(float64(rule.CB))
	return f
}

func (f *Form) Mode() Mode { return f.mode }
func (f *Form) RuleID() string { return f.ruleID }
func (f *Form) Title() string { return f.title }
func (f *Form) TopError() string { return f.topError }

// NeedsRefresh reports that the edited rule vanished on the server.
func (f *Form) NeedsRefresh() bool { return f.needsRefresh }

func (f *Form) changed(field Field) {
	f.saved = false
	f.topError = ""
	delete(f.serverErrors, field)
}

func (f *Form) SetTitle(v string) {
	f.title = v
	f.changed(FieldTitle)
}

func (f *Form) SetDescription(v string) {
	f.description = v
	f.changed(FieldDescription)
}

// SetDPC selects a value; nil clears the selection.
func (f *Form) SetDPC(v *float64) {
	f.dpc = v
	f.changed(FieldDPC)
}

func (f *Form) SetEI(v *float64) {
	f.ei = v
	f.changed(FieldEI)
}

func (f *Form) SetCB(v *float64) {
	f.cb = v
	f.changed(FieldCB)
}

// Blur marks field as visited so its error may be shown.
func (f *Form) Blur(field Field) {
	f.touched[field] = true
}

func selected(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func (f *Form) fieldValid(field Field) bool {
	switch field {
	case FieldTitle:
		return strings.TrimSpace(f.title) != ""
	case FieldDPC:
		return selected(f.dpc)
	case FieldEI:
		return selected(f.ei)
	case FieldCB:
		return selected(f.cb)
	default:
		return true
	}
}

// Valid reports whether the draft passes every local check.
func (f *Form) Valid() bool {
	for _, field := range validated {
		if !f.fieldValid(field) {
			return false
		}
	}
	return true
}

// VisibleErrors returns the messages that should be on screen now. A local
// error shows once its field was blurred or a submit was attempted; errors
// returned by the server show until the field is edited.
func (f *Form) VisibleErrors() map[Field]string {
	out := make(map[Field]string)
	for _, field := range validated {
		if (f.touched[field] || f.submitAttempted) && !f.fieldValid(field) {
			out[field] = requiredMessages[field]
		}
	}
	for field, msg := range f.serverErrors {
		if _, ok := out[field]; !ok {
			out[field] = msg
		}
	}
	return out
}

// State derives the form's position in the pristine → touched → submitted
// → saved progression.
func (f *Form) State() State {
	switch {
	case f.saved:
		return StateSaved
	case f.submitAttempted && f.Valid() && len(f.serverErrors) == 0:
		return StateSubmittedValid
	case f.submitAttempted:
		return StateSubmittedInvalid
	case len(f.touched) > 0:
		return StateTouched
	default:
		return StatePristine
	}
}

// Input returns the draft as a repository submission.
func (f *Form) Input() models.RuleInput {
	return models.RuleInput{
		Title:       f.title,
		Description: f.description,
		DPC:         f.dpc,
		EI:          f.ei,
		CB:          f.cb,
	}
}

// Preview scores the draft once all three scored fields are selected.
func (f *Form) Preview() (float64, severity.Level, bool) {
	if !selected(f.dpc) || !selected(f.ei) || !selected(f.cb) {
		return 0, "", false
	}
	score, level := severity.Score(severity.Normalize(f.Input().Scoring()))
	return score, level, true
}

// Submit validates the draft and, only when it is valid, writes it through
// repo. Failures leave the draft untouched and are reflected in
// VisibleErrors, TopError and NeedsRefresh. After a successful add the form
// switches to editing the new rule.
func (f *Form) Submit(ctx context.Context, repo services.RuleRepository) (*models.ActiveKeywordRule, error) {
	f.submitAttempted = true
	f.topError = ""
	f.needsRefresh = false
	if !f.Valid() {
		return nil, ErrInvalid
	}

	var (
		rule *models.ActiveKeywordRule
		err  error
	)
	if f.mode == ModeEdit {
		rule, err = repo.Update(ctx, f.ruleID, f.Input())
	} else {
		rule, err = repo.Create(ctx, f.Input())
	}
	if err != nil {
		f.translate(err)
		return nil, err
	}

	f.saved = true
	f.serverErrors = map[Field]string{}
	f.mode = ModeEdit
	f.ruleID = rule.ID
	f.title = rule.Title
	f.description = rule.Description
	f.dpc = models.Float(float64(rule.DPC))
	f.ei = models.Float(rule.EI)
	f.cb = models.Float(float64(rule.CB))
	return rule, nil
}

func (f *Form) translate(err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		for k, msg := range verr.Fields {
			f.serverErrors[Field(k)] = msg
		}
		f.topError = msgServerCheck
	case errors.Is(err, services.ErrRuleNotFound):
		f.needsRefresh = true
		f.topError = msgRuleGone
	default:
		f.topError = msgSaveFailed
	}
}
