package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

func TestScoreWeightsSumToOneHundred(t *testing.T) {
	sum := weightSeniority + weightLocation + weightSkills + weightSalary +
		weightExperience + weightFreshness + weightCompany + weightRoleFit
	assert.Equal(t, 100.0, sum)
}

func TestScoreRewardsPreferredRoleType(t *testing.T) {
	cfg := common.FilterConfig{}
	profile := interfaces.UserProfile{PreferredRoleTypes: []string{"individual_contributor"}}
	job := models.ScrapedJob{Title: "Engineer"}
	extraction := models.ExtractionRecord{RoleTypes: []string{"individual_contributor"}}

	withMatch := Score(cfg, profile, job, extraction, models.Company{})

	extraction.RoleTypes = []string{"manager"}
	withoutMatch := Score(cfg, profile, job, extraction, models.Company{})

	assert.Greater(t, withMatch, withoutMatch)
}

func TestScoreZeroesOutExcludedRoleType(t *testing.T) {
	profile := interfaces.UserProfile{ExcludedRoleTypes: []string{"manager"}}
	extraction := models.ExtractionRecord{RoleTypes: []string{"manager"}}

	got := scoreRoleFit(profile, extraction)

	assert.Equal(t, 0.0, got)
}

func TestScoreRoleFitNeutralWhenUnknown(t *testing.T) {
	profile := interfaces.UserProfile{}
	extraction := models.ExtractionRecord{}

	got := scoreRoleFit(profile, extraction)

	assert.Equal(t, weightRoleFit*0.5, got)
}
