package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/telemetry"
	"github.com/convoflow/workflow-engine/internal/trigger"
)

// channelWebhookHandler receives inbound customer messages over the web
// widget and WhatsApp and hands each one to dispatch.Dispatcher as a
// normalized trigger.Event. Ported from
// original_source/services/whatsapp_service.py's verify_webhook/
// receive_message pair; the tenant is resolved from the URL path rather
// than a phone_number_id lookup table, since spec.md models no such
// per-number routing table — a tenant's WhatsApp number maps 1:1 onto its
// webhook path instead.
type channelWebhookHandler struct {
	dispatcher  *dispatch.Dispatcher
	verifyToken string
	log         telemetry.Logger
}

func (h *channelWebhookHandler) register(g *gin.RouterGroup) {
	wa := g.Group("/whatsapp/:tenant_id")
	wa.GET("", h.verifyWhatsApp)
	wa.POST("", h.receiveWhatsApp)

	g.POST("/web/:tenant_id", h.receiveWeb)
}

// verifyWhatsApp answers Meta's webhook subscription handshake:
// hub.mode=subscribe plus a matching hub.verify_token echoes hub.challenge
// back verbatim.
func (h *channelWebhookHandler) verifyWhatsApp(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
		return
	}
	c.String(http.StatusOK, challenge)
}

// whatsAppPayload models only the fields receive_message actually reads
// out of Meta's webhook envelope.
type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (h *channelWebhookHandler) receiveWhatsApp(c *gin.Context) {
	var payload whatsAppPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.Param("tenant_id")
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Text.Body == "" {
					continue
				}
				event := trigger.Event{
					Kind:     "message_created",
					Message:  msg.Text.Body,
					Intent:   llm.DetectIntent(msg.Text.Body, nil),
					FromUser: msg.From,
					Channel:  "whatsapp",
				}
				if err := h.dispatcher.HandleInboundMessage(c.Request.Context(), tenantID, event); err != nil {
					h.log.Error(c.Request.Context(), "api: whatsapp dispatch failed", "tenant_id", tenantID, "error", err.Error())
				}
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

type webMessageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// receiveWeb is the embedded widget's ingress: no provider envelope to
// unwrap, just a participant identifier and a message body.
func (h *channelWebhookHandler) receiveWeb(c *gin.Context) {
	var req webMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := trigger.Event{
		Kind:     "message_created",
		Message:  req.Body,
		Intent:   llm.DetectIntent(req.Body, nil),
		FromUser: req.UserID,
		Channel:  "web",
	}
	if err := h.dispatcher.HandleInboundMessage(c.Request.Context(), c.Param("tenant_id"), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "received"})
}
