package scoring

import (
	"testing"

	"gradesync/app_error"
	"gradesync/repository"

	"github.com/stretchr/testify/assert"
)

func TestConvertPercentage(t *testing.T) {
	result, err := Convert(floatPtr(8), 10, repository.MappingPercentage, nil, 20)
	assert.NoError(t, err)
	assert.Equal(t, 16.0, *result.ConvertedScore)
	assert.Equal(t, 20.0, result.TargetMaxScore)

	// pure function: same inputs, same output
	again, err := Convert(floatPtr(8), 10, repository.MappingPercentage, nil, 20)
	assert.NoError(t, err)
	assert.Equal(t, *result.ConvertedScore, *again.ConvertedScore)
}

func TestConvertPercentageRoundsHalfUp(t *testing.T) {
	result, err := Convert(floatPtr(1), 3, repository.MappingPercentage, nil, 10)
	assert.NoError(t, err)
	assert.Equal(t, 3.33, *result.ConvertedScore)

	result, err = Convert(floatPtr(1), 8, repository.MappingPercentage, nil, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0.13, *result.ConvertedScore)
}

func TestConvertPercentageZeroRawMax(t *testing.T) {
	_, err := Convert(floatPtr(8), 0, repository.MappingPercentage, nil, 20)
	var validationErr *app_error.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestConvertScaledOverrideIsAuthoritative(t *testing.T) {
	result, err := Convert(floatPtr(5), 10, repository.MappingScaled, floatPtr(8), 100)
	assert.NoError(t, err)
	assert.Equal(t, 4.0, *result.ConvertedScore)
	// the override replaces the resolved cap for storage
	assert.Equal(t, 8.0, result.TargetMaxScore)
}

func TestConvertScaledRequiresOverride(t *testing.T) {
	_, err := Convert(floatPtr(5), 10, repository.MappingScaled, nil, 20)
	var validationErr *app_error.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = Convert(floatPtr(5), 10, repository.MappingScaled, floatPtr(0), 20)
	assert.ErrorAs(t, err, &validationErr)
}

func TestConvertDirect(t *testing.T) {
	result, err := Convert(floatPtr(14), 40, repository.MappingDirect, nil, 20)
	assert.NoError(t, err)
	assert.Equal(t, 14.0, *result.ConvertedScore)
	assert.False(t, result.Truncated)
}

func TestConvertDirectTruncatesExcess(t *testing.T) {
	result, err := Convert(floatPtr(25), 40, repository.MappingDirect, nil, 20)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, *result.ConvertedScore)
	assert.True(t, result.Truncated)
}

func TestConvertNegativeRawScore(t *testing.T) {
	_, err := Convert(floatPtr(-1), 10, repository.MappingPercentage, nil, 20)
	var validationErr *app_error.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestConvertMissingAttempt(t *testing.T) {
	result, err := Convert(nil, 10, repository.MappingPercentage, nil, 20)
	assert.NoError(t, err)
	assert.Nil(t, result.ConvertedScore)
	assert.Equal(t, 20.0, result.TargetMaxScore)

	// scaled keeps the override as the stored max even with no attempt
	result, err = Convert(nil, 10, repository.MappingScaled, floatPtr(8), 20)
	assert.NoError(t, err)
	assert.Nil(t, result.ConvertedScore)
	assert.Equal(t, 8.0, result.TargetMaxScore)
}
