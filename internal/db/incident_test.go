package db

import (
	"testing"

	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestKeywordOr(t *testing.T) {
	or := KeywordOr("choque")

	assert.Len(t, or, len(models.KeywordFields))
	assert.Equal(t, bson.M{"incidente": bson.M{"$regex": "choque", "$options": "i"}}, or[0])
	assert.Equal(t, bson.M{"descripcion": bson.M{"$regex": "choque", "$options": "i"}}, or[len(or)-1])

	// Every searchable text field gets its own branch.
	seen := map[string]bool{}
	for _, clause := range or {
		for field := range clause {
			seen[field] = true
		}
	}
	for _, field := range models.KeywordFields {
		assert.True(t, seen[field], "missing branch for %s", field)
	}
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, IsDuplicate(nil))
	assert.False(t, IsDuplicate(assert.AnError))
}
