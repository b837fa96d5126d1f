package api

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/stream"
)

// creditFrame is the only message clients send on the stream. It grants
// the server permission to push n more events.
type creditFrame struct {
	Credits int64 `json:"credits"`
}

// stream handles GET /v1/stream?topics=a,b&format=json|msgpack&types=x,y.
// An authenticated caller with no explicit topics follows its own
// account; anonymous callers must name topics.
func (a *API) stream(c *gin.Context) {
	topics := splitList(c.Query("topics"))
	if len(topics) == 0 {
		caller, ok := identity.CallerFrom(c.Request.Context())
		if !ok {
			badRequest(c, "topics required for anonymous streams")
			return
		}
		topics = []string{stream.AccountTopic(caller)}
	}
	for _, t := range topics {
		if err := stream.ValidateTopic(t); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	codec := stream.GetCodec(c.Query("format"))

	conn, _, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		a.logger.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID := id.NewSubscriberID().String()
	sub := a.broker.Subscribe(subID, topics...)
	defer a.broker.RemoveSubscriber(subID)
	if types := splitList(c.Query("types")); len(types) > 0 {
		ets := make([]stream.EventType, len(types))
		for i, t := range types {
			ets[i] = stream.EventType(t)
		}
		sub.OnlyTypes(ets...)
	}

	a.logger.Debug("stream connected",
		"subscriber", subID,
		"topics", topics,
		"format", codec.Name(),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			data, op, readErr := wsutil.ReadClientData(conn)
			if readErr != nil {
				return
			}
			if op != ws.OpText {
				continue
			}
			var f creditFrame
			if json.Unmarshal(data, &f) == nil && f.Credits > 0 {
				sub.AddCredits(f.Credits)
			}
		}
	}()

	op := ws.OpText
	if codec.Binary() {
		op = ws.OpBinary
	}
	ctx := c.Request.Context()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				_ = wsutil.WriteServerMessage(conn, ws.OpClose,
					ws.NewCloseFrameBody(ws.StatusGoingAway, "shutting down"))
				return
			}
			data, encErr := codec.Encode(evt)
			if encErr != nil {
				a.logger.Error("stream encode failed", "type", evt.Type, "error", encErr)
				continue
			}
			if writeErr := wsutil.WriteServerMessage(conn, op, data); writeErr != nil {
				return
			}
		}
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
