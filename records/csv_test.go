package records

import (
	"strings"
	"testing"
)

func TestReadCandidates_LegacyHeaders(t *testing.T) {
	// Header shape exported by the original candidate spreadsheets.
	data := `Appointment_Location,Country,City,Country_Traveling_To,First_Name,Last_Name,Date_Of_Birth,Nationality,Gender,Marital_Status,Passport_Number,Confirm_Passport_Number,Passport_Issue_Date,Passport_Issue_Place,Passport_Expiry_Date,Visa_Type,Email_Address,Phone,National_ID,Position_Applied_For
Dhaka,Bangladesh,Dhaka,Saudi Arabia,John,Doe,1990-01-01,Bangladeshi,Male,Single,P123456,P123456,2020-01-01,Dhaka,2030-12-31,Work,john.doe@example.com,+8801711111111,N123456,Engineer
`
	cands, err := ReadCandidates(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	c := cands[0]
	if c.FirstName != "John" || c.LastName != "Doe" {
		t.Errorf("name = %q %q", c.FirstName, c.LastName)
	}
	if c.PassportExpiryDate != "2030-12-31" {
		t.Errorf("PassportExpiryDate = %q, want 2030-12-31", c.PassportExpiryDate)
	}
	if c.Email != "john.doe@example.com" {
		t.Errorf("Email_Address alias not applied: %q", c.Email)
	}
	if c.TravelingTo != "Saudi Arabia" {
		t.Errorf("Country_Traveling_To alias not applied: %q", c.TravelingTo)
	}
	if c.Position != "Engineer" {
		t.Errorf("Position_Applied_For alias not applied: %q", c.Position)
	}
}

func TestReadCandidates_CanonicalHeaders(t *testing.T) {
	data := `first_name,last_name,passport_number,email
Amina,Rahman,P777,amina@example.com
Karim,Hossain,P888,karim@example.com
`
	cands, err := ReadCandidates(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[1].FirstName != "Karim" || cands[1].PassportNumber != "P888" {
		t.Errorf("row 2 = %+v", cands[1])
	}
	if cands[0].DateOfBirth != "" {
		t.Errorf("missing column should leave field empty, got %q", cands[0].DateOfBirth)
	}
}

func TestReadCandidates_ShortRowAndWhitespace(t *testing.T) {
	data := `first_name,last_name,email
  Lina  , Akter ,lina@example.com
Rafi,Islam
`
	cands, err := ReadCandidates(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if cands[0].FirstName != "Lina" || cands[0].LastName != "Akter" {
		t.Errorf("fields should be trimmed: %+v", cands[0])
	}
	if cands[1].FirstName != "Rafi" || cands[1].Email != "" {
		t.Errorf("short row should leave trailing fields empty: %+v", cands[1])
	}
}

func TestReadCandidates_Errors(t *testing.T) {
	if _, err := ReadCandidates(strings.NewReader("")); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := ReadCandidates(strings.NewReader("bogus,columns\n1,2\n")); err == nil {
		t.Error("header with no recognized columns should fail")
	}
	if _, err := ReadCandidates(strings.NewReader("first_name,last_name\n")); err == nil {
		t.Error("header-only file should fail")
	}
}
