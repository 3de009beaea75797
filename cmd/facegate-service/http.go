// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/facegate/lib/faceauth"
)

// windowHeader names the requesting window on HTTP calls. Window IDs
// are bearer credentials: anyone who knows one can act as that window,
// so front ends must use unguessable values such as random UUIDs.
const windowHeader = "X-Facegate-Window"

type descriptorBody struct {
	Descriptor json.RawMessage `json:"descriptor"`
}

func (b descriptorBody) values() []float64 {
	var values []float64
	if len(b.Descriptor) == 0 || json.Unmarshal(b.Descriptor, &values) != nil {
		return nil
	}
	return values
}

type lockBody struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type kioskBody struct {
	Enable bool `json:"enable"`
}

type httpHandler struct {
	core *faceauth.Core
}

// newRouter returns the JSON API. Operation results are always 200
// with the response struct as the body; 400 means the body did not
// parse.
func newRouter(core *faceauth.Core) *gin.Engine {
	h := &httpHandler{core: core}
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/identities/:user/enroll", h.enroll)
	api.POST("/identities/:user/verify", h.verify)
	api.POST("/attempts", h.logAttempt)
	api.POST("/lock", h.lock)
	api.POST("/kiosk", h.kiosk)
	api.GET("/windows/:window", h.windowStatus)
	api.DELETE("/windows/:window", h.closeWindow)
	api.GET("/status", h.status)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return router
}

func (h *httpHandler) enroll(c *gin.Context) {
	var body descriptorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.core.EnrollIdentity(c.Request.Context(), c.Param("user"), body.values()))
}

func (h *httpHandler) verify(c *gin.Context) {
	var body descriptorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	window := c.GetHeader(windowHeader)
	c.JSON(http.StatusOK, h.core.VerifyIdentity(c.Request.Context(), window, c.Param("user"), body.values()))
}

func (h *httpHandler) logAttempt(c *gin.Context) {
	var request faceauth.AttemptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Window == "" {
		request.Window = c.GetHeader(windowHeader)
	}
	c.JSON(http.StatusOK, h.core.LogAuthAttempt(c.Request.Context(), request))
}

func (h *httpHandler) lock(c *gin.Context) {
	var body lockBody
	// An empty body is a valid lock request.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, h.core.LockWindow(c.Request.Context(), c.GetHeader(windowHeader), body.UserID, body.Reason))
}

func (h *httpHandler) kiosk(c *gin.Context) {
	var body kioskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.core.SetPrivilegedMode(c.Request.Context(), c.GetHeader(windowHeader), body.Enable))
}

func (h *httpHandler) closeWindow(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.CloseWindow(c.Request.Context(), c.Param("window")))
}

func (h *httpHandler) windowStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.WindowStatus(c.Param("window")))
}

func (h *httpHandler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.Status())
}
