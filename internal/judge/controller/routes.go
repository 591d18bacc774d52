package controller

import (
	"github.com/gin-gonic/gin"
)

// Guards are applied to the judged routes only; the health probe stays open.
type Guards struct {
	Run    []gin.HandlerFunc
	Submit []gin.HandlerFunc
}

// Register mounts the compiler routes on r.
func Register(r gin.IRouter, h *JudgeController, guards Guards) {
	r.GET("/", h.Health)
	r.POST("/run", chain(guards.Run, h.Run)...)
	r.POST("/submit", chain(guards.Submit, h.Submit)...)
}

func chain(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, handler)
}
