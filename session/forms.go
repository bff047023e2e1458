package session

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// fieldTimeout is the per-field deadline while filling the form.
const fieldTimeout = 10 * time.Second

// textField binds one candidate value to a form input by element name.
type textField struct {
	name  string
	value string
}

// selectField binds one candidate value to a dropdown by element name.
type selectField struct {
	name  string
	value string
}

// fillBookingForm fills the wafid appointment form for the candidate.
// Empty candidate values skip their field; the form's own validation is
// the authority on which fields are mandatory.
func fillBookingForm(p *rod.Page, task *models.Candidate) error {
	selects := []selectField{
		{"country", task.Country},
		{"city", task.City},
		{"country_travelling_to", task.TravelingTo},
		{"nationality", task.Nationality},
		{"gender", task.Gender},
		{"marital_status", task.MaritalStatus},
		{"visa_type", task.VisaType},
		{"position_applied_for", task.Position},
	}
	for _, f := range selects {
		if f.value == "" {
			continue
		}
		if err := setSelect(p, f.name, f.value); err != nil {
			return models.NewBookingError(models.ErrCodeSubmission,
				fmt.Sprintf("selecting %s", f.name), err)
		}
	}

	texts := []textField{
		{"first_name", task.FirstName},
		{"last_name", task.LastName},
		{"dob", task.DateOfBirth},
		{"passport_number", task.PassportNumber},
		{"confirm_passport", task.PassportNumber},
		{"passport_issue_date", task.PassportIssueDate},
		{"passport_issue_place", task.PassportIssuePlace},
		{"passport_expiry_date", task.PassportExpiryDate},
		{"email", task.Email},
		{"phone", task.Phone},
		{"national_id", task.NationalID},
	}
	for _, f := range texts {
		if f.value == "" {
			continue
		}
		if err := setInput(p, f.name, f.value); err != nil {
			return models.NewBookingError(models.ErrCodeSubmission,
				fmt.Sprintf("filling %s", f.name), err)
		}
	}
	return nil
}

// setInput types a value into the named input, clearing any prefill first.
func setInput(p *rod.Page, name, value string) error {
	el, err := p.Timeout(fieldTimeout).Element(fmt.Sprintf(`[name=%q]`, name))
	if err != nil {
		return fmt.Errorf("field %s not found: %w", name, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("typing into %s: %w", name, err)
	}
	return nil
}

// setSelect picks a dropdown option by visible text, falling back to the
// option value attribute.
func setSelect(p *rod.Page, name, value string) error {
	el, err := p.Timeout(fieldTimeout).Element(fmt.Sprintf(`select[name=%q]`, name))
	if err != nil {
		return fmt.Errorf("select %s not found: %w", name, err)
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err == nil {
		return nil
	}
	if err := el.Select([]string{fmt.Sprintf(`[value=%q]`, value)}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("no option %q in %s: %w", value, name, err)
	}
	return nil
}

// submitForm clicks the form's submit control.
func submitForm(p *rod.Page) error {
	el, err := p.Timeout(fieldTimeout).Element(`button[type="submit"], input[type="submit"]`)
	if err != nil {
		return models.NewBookingError(models.ErrCodeSubmission, "submit button not found", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return models.NewBookingError(models.ErrCodeSubmission, "clicking submit failed", err)
	}
	return nil
}

// confirmBooking clicks the post-assignment confirmation control that
// finalizes the appointment.
func confirmBooking(p *rod.Page) error {
	el, err := p.Timeout(fieldTimeout).Element(`button[type="submit"], a.confirm, button.confirm`)
	if err != nil {
		return models.NewBookingError(models.ErrCodeCompletion, "confirmation control not found", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return models.NewBookingError(models.ErrCodeCompletion, "clicking confirmation failed", err)
	}
	return nil
}
