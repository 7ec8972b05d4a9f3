package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initWhatsAppRoutes() {
	if c.WhatsApp == nil {
		return
	}
	c.Group.GET("/webhook/whatsapp", c.VerifyWhatsAppWebhook)
	c.Group.POST("/webhook/whatsapp", c.ReceiveWhatsAppWebhook)
}

// VerifyWhatsAppWebhook answers the Meta subscription handshake.
func (c *Controller) VerifyWhatsAppWebhook(ctx echo.Context) error {
	challenge, ok := c.WhatsApp.VerifyWebhook(
		ctx.QueryParam("hub.mode"),
		ctx.QueryParam("hub.verify_token"),
		ctx.QueryParam("hub.challenge"),
	)
	if !ok {
		return c.HandleError(ctx, nil, "Verificação do webhook falhou", http.StatusForbidden)
	}
	return ctx.String(http.StatusOK, challenge)
}

// ReceiveWhatsAppWebhook validates the payload signature against the raw
// body and turns inbound messages into notes.
func (c *Controller) ReceiveWhatsAppWebhook(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao ler requisição", http.StatusBadRequest)
	}

	signature := ctx.Request().Header.Get("X-Hub-Signature-256")
	if !c.WhatsApp.VerifySignature(body, signature) {
		return c.HandleError(ctx, nil, "Assinatura inválida", http.StatusForbidden)
	}

	result, err := c.WhatsApp.ProcessWebhook(ctx.Request().Context(), body)
	if err != nil {
		return c.HandleError(ctx, err, "Payload do webhook inválido", http.StatusBadRequest)
	}

	if c.metrics != nil {
		for range result.Results {
			c.metrics.Pipeline.RecordWhatsAppMessage("inbound", "received")
		}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":             "received",
		"processed_messages": result.ProcessedMessages,
		"results":            result.Results,
	})
}
