package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

// PostSlackCommand handles POST /api/slack/command, the slash-command
// endpoint. The command text is handed to the bot, which only ever calls
// the engine's public operations.
func (h *Handler) PostSlackCommand(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	if h.slackSigningSecret != "" {
		verifier, err := slack.NewSecretsVerifier(c.Request.Header, h.slackSigningSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing slack signature"})
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := verifier.Ensure(); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid slack signature"})
			return
		}
	}

	// SlashCommandParse consumes the form body, so restore it first.
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed slash command"})
		return
	}

	reply := h.bot.Handle(c.Request.Context(), cmd.Text)
	c.JSON(http.StatusOK, gin.H{
		"response_type": "ephemeral",
		"text":          reply,
	})
}
