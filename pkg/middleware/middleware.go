package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/inboxd/pkg/state"
)

func ClaimIp() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("CurrentIP", c.ClientIP())
		c.Set(state.CurrentUserIP, c.ClientIP())
		c.Next()
	}
}

func CheckAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var myJwt string
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			authToken := strings.Split(authHeader, " ")
			if len(authToken) != 2 || authToken[0] != "Bearer" {
				c.JSON(400, gin.H{"error": "Invalid/Malformed auth token"})
				c.Abort()
				return
			}
			myJwt = authToken[1]
		case c.Query("access_token") != "":
			// EventSource cannot set headers, so stream viewers carry the
			// token as a query parameter instead.
			myJwt = c.Query("access_token")
		default:
			c.JSON(401, gin.H{"error": "Token is required"})
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(myJwt, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("SECRET")), nil
		})

		if err != nil {
			c.JSON(401, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		if !token.Valid {
			c.JSON(401, gin.H{"error": "Token is not valid"})
			c.Abort()
			return
		}

		if exp, ok := claims["exp"].(float64); !ok || float64(time.Now().Unix()) > exp {
			c.JSON(401, gin.H{"error": "Token expired"})
			c.Abort()
			return
		}

		// Set user and workspace scope to context
		if userID, ok := claims["id"].(float64); ok {
			c.Set(state.CurrentUserId, uint(userID))
		}
		workspaceID, ok := claims["workspace_id"].(float64)
		if !ok || workspaceID == 0 {
			c.JSON(401, gin.H{"error": "Token carries no workspace"})
			c.Abort()
			return
		}
		c.Set(state.CurrentWorkspaceId, uint(workspaceID))

		c.Next()
	}
}
