package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLeadRecordFlattensUserDetails(t *testing.T) {
	raw := samplePayload().Users[0]

	rec := BuildLeadRecord(raw)

	assert.Equal(t, 7, rec.ID)
	assert.Equal(t, "Ayesha Khan", rec.Name)
	assert.Equal(t, "ayesha@acme.test", rec.Email)
	assert.Equal(t, "Acme", rec.Department)
	assert.Equal(t, StatusActive, rec.Status)
	assert.Equal(t, ContactInfo{Mobile: "+92 300 0000000", Email: "ayesha@acme.test"}, rec.ContactInfo)
	assert.Equal(t, "3/5/2024", rec.CreatedAt)
	require.Len(t, rec.Quotations, 3)
}

func TestBuildLeadRecordIsDeterministic(t *testing.T) {
	raw := samplePayload().Users[0]
	assert.Equal(t, BuildLeadRecord(raw), BuildLeadRecord(raw))
}

func TestBuildLeadRecordStatusFollowsTotalQuotations(t *testing.T) {
	raw := userRecord(1, "No", "Quotes", "none@example.test", "Nil")
	assert.Equal(t, StatusPending, BuildLeadRecord(raw).Status)

	// The count drives status even when the embedded list is empty.
	raw.TotalQuotations = 2
	assert.Equal(t, StatusActive, BuildLeadRecord(raw).Status)
}

func TestBuildLeadRecordUsesLocale(t *testing.T) {
	raw := samplePayload().Users[1]
	assert.Equal(t, "05/03/2024", BuildLeadRecord(raw, WithLocale("en-GB")).CreatedAt)
	assert.Equal(t, "2024-03-05", BuildLeadRecord(raw, WithLocale("iso")).CreatedAt)
}

func TestBuildLeadRecordDoesNotAliasRawQuotations(t *testing.T) {
	raw := samplePayload().Users[0]
	rec := BuildLeadRecord(raw)

	rec.Quotations[0].HRPlans["Plan A"] = HRPlan{TotalLives: 1}
	*rec.Quotations[0].Calculations.WaiverPercentage = 99

	assert.Equal(t, 30, raw.Quotations[0].HRPlans["Plan A"].TotalLives)
	assert.Equal(t, 2.5, *raw.Quotations[0].Calculations.WaiverPercentage)
}

func TestBuildLeadRecordNilQuotationsBecomeEmpty(t *testing.T) {
	rec := BuildLeadRecord(RawUserRecord{UserDetails: UserDetails{ID: 4}})
	require.NotNil(t, rec.Quotations)
	assert.Empty(t, rec.Quotations)
	assert.Equal(t, "", rec.CreatedAt)
}

func TestBuildAllLeadRecordsPreservesOrder(t *testing.T) {
	records := BuildAllLeadRecords(samplePayload())
	require.Len(t, records, 3)
	assert.Equal(t, []int{7, 3, 12}, []int{records[0].ID, records[1].ID, records[2].ID})
	assert.Empty(t, BuildAllLeadRecords(QuotationPayload{}))
}
