package controller

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/auroramedia/gramflow/utils"
)

type tokenRequest struct {
	Key string `json:"key"`
}

// IssueToken exchanges the admin key for a short-lived operator JWT so
// dashboards don't have to carry the raw key on every request.
func (ctrl *Controller) IssueToken(c *gin.Context) {
	adminKey := ctrl.Config.EnvConfig.Auth.AdminAPIKey
	if adminKey == "" {
		utils.JSON500(c, "ADMIN_API_KEY not set")
		return
	}

	var req tokenRequest
	_ = c.ShouldBindJSON(&req)
	key := req.Key
	if key == "" {
		key = c.GetHeader("X-Admin-Key")
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
		utils.JSON401(c, "Unauthorized")
		return
	}

	token, err := utils.MintOperatorToken(ctrl.Config.EnvConfig)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Auth] Failed to mint operator token")
		utils.JSON500(c, "Failed to issue token")
		return
	}

	utils.JSON200(c, gin.H{
		"token":      token,
		"expires_in": ctrl.Config.EnvConfig.JWT.Expire,
	})
}
