package catalog_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/maz279/getit-project-v2-sub015/pkg/catalog"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

func TestDefaultCatalog(t *testing.T) {
	cat := catalog.Default()

	standard, err := cat.Steps("standard")
	assert.NoError(t, err)
	assert.Len(t, standard, 7)
	assert.Equal(t, catalog.StepOrderValidation, standard[0].ID)
	assert.Equal(t, catalog.StepCustomerNotification, standard[6].ID)

	express, err := cat.Steps("express")
	assert.NoError(t, err)
	assert.Len(t, express, 5)

	_, err = cat.Steps("overnight")
	assert.True(t, errors.Is(err, catalog.ErrUnknownVariant))
}

func TestRegisterValidation(t *testing.T) {
	cat := catalog.New()

	assert.Error(t, cat.Register("", []catalog.StepDefinition{{ID: "a"}}))
	assert.Error(t, cat.Register("empty", nil))
	assert.Error(t, cat.Register("anon-step", []catalog.StepDefinition{{Name: "No ID"}}))
	assert.Error(t, cat.Register("dupes", []catalog.StepDefinition{
		{ID: "a", Name: "A"},
		{ID: "a", Name: "A again"},
	}))

	assert.NoError(t, cat.Register("ok", []catalog.StepDefinition{
		{ID: "a", Name: "A", MaxRetries: 2},
		{ID: "b", Name: "B", MaxRetries: 1},
	}))
	assert.Contains(t, cat.Variants(), "ok")
}

func TestStepsReturnsACopy(t *testing.T) {
	cat := catalog.Default()
	first, err := cat.Steps("standard")
	assert.NoError(t, err)
	first[0].ID = "tampered"

	second, err := cat.Steps("standard")
	assert.NoError(t, err)
	assert.Equal(t, catalog.StepOrderValidation, second[0].ID)
}

func TestBuildSteps(t *testing.T) {
	cat := catalog.Default()
	steps, err := cat.BuildSteps("standard")
	assert.NoError(t, err)
	assert.Len(t, steps, 7)
	for _, step := range steps {
		assert.Equal(t, models.PendingStepStatus, step.Status)
		assert.Equal(t, 0, step.RetryCount)
		assert.Equal(t, catalog.DefaultMaxRetries, step.MaxRetries)
		assert.Nil(t, step.StartedAt)
	}

	_, err = cat.BuildSteps("overnight")
	assert.Error(t, err)
}
