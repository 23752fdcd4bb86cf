package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"toolhub/internal/gateway"
	"toolhub/internal/metrics"
	"toolhub/internal/normalize"
)

// handleChat relays one chat completion, either as a single JSON body
// or as an SSE stream mirroring the upstream frame for frame.
func (s *Server) handleChat(c *gin.Context) {
	var req gateway.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}
	if err := req.Validate(); err != nil {
		res := normalize.Normalize(err)
		c.JSON(res.Status, gin.H{"error": res.Message})
		return
	}

	if s.limiter != nil {
		allowed, _, resetAt, err := s.limiter.Allow(c.Request.Context(), c.ClientIP(), time.Now())
		if err != nil {
			s.logger.Error().Err(err).Msg("rate limiter unavailable, letting request through")
		} else if !allowed {
			metrics.Global().RateLimited.Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(time.Until(resetAt).Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": normalize.RateLimitMessage})
			return
		}
	}

	metrics.Global().ChatRequests.Inc()

	if !req.Stream {
		resp, err := s.gw.Chat(c.Request.Context(), req)
		if err != nil {
			s.writeChatError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	s.relayStream(c, req)
}

// relayStream forwards upstream chunks as data: frames and always
// terminates the stream, with [DONE] on success or a single error
// frame on mid-stream failure.
func (s *Server) relayStream(c *gin.Context, req gateway.ChatRequest) {
	stream, err := s.gw.ChatStream(c.Request.Context(), req, nil)
	if err != nil {
		// Nothing written yet, a plain JSON error is still possible.
		s.writeChatError(c, err)
		return
	}
	defer stream.Close()

	metrics.Global().ChatStreams.Inc()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Fprint(c.Writer, "data: [DONE]\n\n")
			c.Writer.Flush()
			return
		}
		if err != nil {
			if c.Request.Context().Err() != nil {
				// Client went away, nobody is reading the frames.
				return
			}
			s.countUpstreamError(err)
			res := normalize.Normalize(err)
			frame, _ := json.Marshal(gin.H{"error": res.Message})
			fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
			c.Writer.Flush()
			return
		}

		payload, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		metrics.Global().StreamChunks.Inc()
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()

		select {
		case <-c.Request.Context().Done():
			return
		default:
		}
	}
}

func (s *Server) writeChatError(c *gin.Context, err error) {
	s.countUpstreamError(err)
	res := normalize.Normalize(err)
	if res.Status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("chat relay failed")
	}
	c.JSON(res.Status, gin.H{"error": res.Message})
}

func (s *Server) countUpstreamError(err error) {
	var ue *gateway.UpstreamError
	if errors.As(err, &ue) {
		metrics.Global().UpstreamErrors.Inc()
	}
}
