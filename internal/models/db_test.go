package models_test

import (
	"testing"

	"github.com/gobuffalo/pop/v6"
	"github.com/ratersapp/siws/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTableNameNamespacing(t *testing.T) {
	cases := []struct {
		expected string
		value    interface{}
	}{
		{expected: "siws_challenges", value: []*models.Challenge{}},
		{expected: "siws_challenges", value: &models.Challenge{}},
	}

	for _, tc := range cases {
		m := &pop.Model{Value: tc.value}
		assert.Equal(t, tc.expected, m.TableName())
	}
}
