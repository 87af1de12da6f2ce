package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	appValidator "github.com/charlesng35/classroom/pkg/validator"
)

// tokenIDRule matches the ids produced by the registry's generator.
const tokenIDRule = "required,uuid4"

// tokenIDParam extracts the :id path parameter. Ids that could never have been issued
// are rejected so they do not reach the registry.
func tokenIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if err := appValidator.ValidateVar("id", id, tokenIDRule); err != nil {
		return "", false
	}
	return id, true
}
