package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"lookout/internal/lookup/models"
)

const target = "+14155550000"

type FilterSuite struct {
	suite.Suite
	direct []models.CandidateRecord
}

func TestFilterSuite(t *testing.T) {
	suite.Run(t, new(FilterSuite))
}

func (s *FilterSuite) SetupTest() {
	s.direct = []models.CandidateRecord{
		{Name: "Jane Smith", Email: "jane@a.com", Phone: "+1 (415) 555-0000", OriginStore: "Apollo"},
	}
}

func (s *FilterSuite) score(byName ...models.CandidateRecord) Result {
	return Score(target, s.direct, byName)
}

func (s *FilterSuite) candidate(res Result, email string) models.CandidateScore {
	for _, c := range res.Scores {
		if c.Email == email {
			return c
		}
	}
	s.FailNow("candidate not scored", email)
	return models.CandidateScore{}
}

// =============================================================================
// Pool A
// =============================================================================

func (s *FilterSuite) TestDirectRecordsEstablishAnchor() {
	res := s.score()

	s.Equal("jane", res.AnchorFirst)
	s.Equal("smith", res.AnchorLast)
	s.True(res.Allows("JANE@A.COM"))
	s.Equal([]string{"jane@a.com"}, res.AcceptedEmails())
}

func (s *FilterSuite) TestDirectRecordWithoutPhoneMatchIsIgnored() {
	s.direct = append([]models.CandidateRecord{
		{Name: "Other Person", Email: "other@x.com", Phone: "+1 212 555 9999"},
	}, s.direct...)

	res := s.score()

	s.False(res.Allows("other@x.com"))
	s.Equal("jane", res.AnchorFirst)
}

// =============================================================================
// Pool B scoring
// =============================================================================

func (s *FilterSuite) TestSameFullNameAccepted() {
	res := s.score(models.CandidateRecord{Name: "Jane Smith", Email: "jane.smith@b.com", OriginStore: "Breach2019"})

	c := s.candidate(res, "jane.smith@b.com")
	s.True(c.Accepted)
	s.Contains(c.Rules, "full_name")
	s.GreaterOrEqual(c.Score, WeightFullName)
	s.True(res.Allows("jane.smith@b.com"))
}

func (s *FilterSuite) TestSameSurnameDifferentFirstNameRejected() {
	res := s.score(models.CandidateRecord{Name: "Kate Smith", Email: "kate@c.com", OriginStore: "Breach2019"})

	c := s.candidate(res, "kate@c.com")
	s.Equal(WeightSurnameOnly, c.Score)
	s.False(c.Accepted)
	s.ElementsMatch([]string{"jane@a.com"}, res.AcceptedEmails())
}

func (s *FilterSuite) TestMixedPoolAcceptedSet() {
	res := s.score(
		models.CandidateRecord{Name: "Jane Smith", Email: "jane.smith@b.com"},
		models.CandidateRecord{Name: "Kate Smith", Email: "kate@c.com"},
	)

	s.ElementsMatch([]string{"jane@a.com", "jane.smith@b.com"}, res.AcceptedEmails())
}

func (s *FilterSuite) TestDifferentPersonPenalty() {
	res := s.score(models.CandidateRecord{Name: "Bob Jones", Email: "bob@d.com"})

	c := s.candidate(res, "bob@d.com")
	s.Equal(WeightDifferentName, c.Score)
	s.Equal([]string{"different_name"}, c.Rules)
}

func (s *FilterSuite) TestFirstNameOnlyScoresExactlyThreshold() {
	res := s.score(models.CandidateRecord{Name: "Jane Doe", Email: "jd@x.com", OriginStore: "Unlisted"})

	c := s.candidate(res, "jd@x.com")
	s.Equal(Threshold, c.Score)
	s.True(c.Accepted)
}

func (s *FilterSuite) TestBoundaryAroundThreshold() {
	res := s.score(
		models.CandidateRecord{Name: "Bob Jones", Email: "bob@trusted.com", Phone: "4155550000", OriginStore: "StockX"},
		models.CandidateRecord{Name: "Bob Jones", Email: "bob@plain.com", Phone: "4155550000", OriginStore: "Unlisted"},
	)

	trusted := s.candidate(res, "bob@trusted.com")
	s.Equal(WeightPhoneOverlap+WeightDifferentName+WeightTrustedStore, trusted.Score)
	s.True(trusted.Accepted)

	plain := s.candidate(res, "bob@plain.com")
	s.Equal(WeightPhoneOverlap+WeightDifferentName, plain.Score)
	s.False(plain.Accepted)
}

func (s *FilterSuite) TestEmailLocalPartContainsAnchorFirstName() {
	res := s.score(models.CandidateRecord{Name: "J. Smith-Jones", Email: "JaneS@jane-mail.com"})

	c := s.candidate(res, "janes@jane-mail.com")
	s.Contains(c.Rules, "email_first_name")
}

func (s *FilterSuite) TestEmailDomainDoesNotCountAsFirstName() {
	res := s.score(models.CandidateRecord{Name: "Robert Brown", Email: "rb@jane.com"})

	c := s.candidate(res, "rb@jane.com")
	s.NotContains(c.Rules, "email_first_name")
}

func (s *FilterSuite) TestRecordWithoutEmailIsSkipped() {
	res := s.score(models.CandidateRecord{Name: "Jane Smith", Phone: target})

	s.Len(res.Scores, 1)
}

func (s *FilterSuite) TestNoAnchorMeansPoolBContributesNothing() {
	s.direct = []models.CandidateRecord{{Email: "anon@a.com", Phone: target}}

	res := s.score(models.CandidateRecord{Name: "Jane Smith", Email: "jane@b.com", Phone: target, OriginStore: "Apollo"})

	s.Empty(res.AnchorFirst)
	s.Equal([]string{"anon@a.com"}, res.AcceptedEmails())
	s.False(res.Allows("jane@b.com"))
}

func (s *FilterSuite) TestFirstLastNameFieldsUsedWhenFullNameMissing() {
	s.direct = []models.CandidateRecord{{FirstName: "Jane", LastName: "Smith", Email: "jane@a.com", Phone: target}}

	res := s.score(models.CandidateRecord{Name: "Smith, Jane", Email: "js@b.com"})

	c := s.candidate(res, "js@b.com")
	s.Equal([]string{"first_name", "last_name"}, c.Rules)
	s.Equal(WeightFirstName+WeightLastName, c.Score)
}

// =============================================================================
// Apply
// =============================================================================

func (s *FilterSuite) TestApplyKeepsOrderAndCasing() {
	res := s.score(
		models.CandidateRecord{Name: "Jane Smith", Email: "jane.smith@b.com"},
		models.CandidateRecord{Name: "Kate Smith", Email: "kate@c.com"},
	)

	contacts := Apply(res,
		[]string{"Kate@C.com", "Jane.Smith@B.com", "jane@a.com", "jane@A.com"},
		[]string{"+14155550000", " +14155550000 ", "+14155551111"},
	)

	s.Equal([]string{"Jane.Smith@B.com", "jane@a.com"}, contacts.Emails)
	s.Equal([]string{"+14155550000", "+14155551111"}, contacts.Phones)
	s.Len(contacts.Candidates, 3)
}

func (s *FilterSuite) TestApplyWithNothingAccepted() {
	contacts := Apply(Score(target, nil, nil), []string{"x@y.com"}, nil)

	s.Empty(contacts.Emails)
	s.NotNil(contacts.Phones)
}

// =============================================================================
// Helpers
// =============================================================================

func TestAccept(t *testing.T) {
	assert.True(t, Accept(30))
	assert.True(t, Accept(100))
	assert.False(t, Accept(29))
	assert.False(t, Accept(-40))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Jane Smith", "jane", "smith"},
		{"  Jane   Q   Smith ", "jane", "smith"},
		{"Smith, Jane Q", "jane", "smith"},
		{"Smith,", "", "smith"},
		{"Jane", "jane", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestExtractCandidates(t *testing.T) {
	payload := map[string]any{
		"user_profile": map[string]any{
			"emails_all": "jane@a.com / Jane.Smith@B.com / kate@c.com",
			"phones_all": "+14155550000 / +14155551111",
		},
		"phone_records": map[string]any{
			"Apollo": map[string]any{"Data": []any{
				map[string]any{"Phone": 14155550000.0, "Email": "jane@a.com", "FullName": "Jane Smith", "City": "SF"},
			}},
		},
		"name_records": map[string]any{
			"StockX": map[string]any{"Data": []any{
				map[string]any{"Email": "kate@c.com", "FirstName": "Kate", "LastName": "Smith"},
			}},
			"Broken": "not an object",
		},
	}

	c := ExtractCandidates(payload)

	require.Len(t, c.Direct, 1)
	assert.Equal(t, "14155550000", c.Direct[0].Phone)
	assert.Equal(t, "Apollo", c.Direct[0].OriginStore)
	assert.Equal(t, map[string]string{"City": "SF"}, c.Direct[0].Extra)
	require.Len(t, c.ByName, 1)
	assert.Equal(t, "Kate Smith", c.ByName[0].FullName())
	assert.Equal(t, []string{"jane@a.com", "Jane.Smith@B.com", "kate@c.com"}, c.RawEmails)
	assert.Len(t, c.RawPhones, 2)
	assert.False(t, c.Empty())
	assert.True(t, ExtractCandidates(map[string]any{"unrelated": true}).Empty())
}

func TestRedact(t *testing.T) {
	payload := map[string]any{
		"user_profile": map[string]any{"name": "Jane Smith", "emails_all": "jane@a.com / kate@c.com"},
		"name_records": map[string]any{
			"StockX": map[string]any{"Data": []any{
				map[string]any{"Email": "kate@c.com", "FullName": "Kate Smith"},
				map[string]any{"Email": "jane.smith@b.com", "FullName": "Jane Smith"},
			}},
			"Other": map[string]any{"Data": []any{
				map[string]any{"Email": "kate@c.com"},
			}},
		},
	}
	direct := []models.CandidateRecord{{Name: "Jane Smith", Email: "jane@a.com", Phone: target}}
	res := Score(target, direct, []models.CandidateRecord{
		{Name: "Kate Smith", Email: "kate@c.com"},
		{Name: "Jane Smith", Email: "jane.smith@b.com"},
	})

	got := Redact(payload, res, []string{"jane@a.com"})

	assert.Equal(t, "jane@a.com", got["user_profile"].(map[string]any)["emails_all"])
	assert.Equal(t, "jane@a.com / kate@c.com", payload["user_profile"].(map[string]any)["emails_all"], "input untouched")
	stores := got["name_records"].(map[string]any)
	require.Contains(t, stores, "StockX")
	assert.NotContains(t, stores, "Other")
	assert.Len(t, stores["StockX"].(map[string]any)["Data"], 1)
}
