package searcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_TooShort(t *testing.T) {
	assert.ErrorIs(t, Validate("менеджер"), ErrQueryTooShort)
	assert.ErrorIs(t, Validate(""), ErrQueryTooShort)
}

func TestValidate_AcceptsSpecificQuery(t *testing.T) {
	query := "Руководство отделом продаж и подбор персонала в ООО Ромашка"
	assert.NoError(t, Validate(query))
}

func TestValidate_RejectsGenericQuery(t *testing.T) {
	query := "Ищу интересную вакансию в хорошей фирме нашего города"
	assert.ErrorIs(t, Validate(query), ErrQueryTooGeneric)
}

func TestTooGeneric_LongTextPasses(t *testing.T) {
	long := strings.Repeat("очень длинный и подробный текст запроса ", 10)
	assert.False(t, TooGeneric(long))
}

func TestTooGeneric_ForbiddenPatterns(t *testing.T) {
	assert.True(t, TooGeneric("Резюме обновлено 12 января, желательное время в пути час"))
	assert.True(t, TooGeneric("Занятость полная, график работы сменный"))
}

func TestTooGeneric_RequiresTwoIndicators(t *testing.T) {
	// One indicator is not enough.
	assert.True(t, TooGeneric("Выполнял подбор персонала для различных направлений бизнеса"))

	// Two indicators pass.
	assert.False(t, TooGeneric("Выполнял подбор персонала и формирование бюджета отдела"))
	assert.False(t, TooGeneric("Работал в ООО Ромашка, в подчинении 25 человек"))
}
