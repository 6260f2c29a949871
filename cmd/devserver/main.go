// devserver is a local stand-in for the hosted attendance backend. It
// implements the five endpoints the client consumes against an
// in-memory store, so the full capture and records flow can be
// exercised without the production service. One dev user is accepted,
// configured via DEV_EMAIL / DEV_PASSWORD.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bluetowndev/worktrack/internal/attendance"
	"github.com/bluetowndev/worktrack/internal/auth"
	"github.com/bluetowndev/worktrack/internal/config"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("devserver failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      newRouter(cfg, attendance.NewStore()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("devserver listening on :%s (user %s)", cfg.HTTPPort, cfg.DevEmail)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	return nil
}

func newRouter(cfg config.App, store *attendance.Store) *gin.Engine {
	devUser := gin.H{
		"name":         "Dev",
		"fullName":     "Dev Field User",
		"email":        cfg.DevEmail,
		"isVerified":   true,
		"role":         "field",
		"organization": "WorkTrack Dev",
		"phoneNumber":  "0000000000",
		"state":        "NA",
		"baseLocation": "HQ",
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/v1/user/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
			return
		}
		if req.Email != cfg.DevEmail || req.Password != cfg.DevPassword {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
			return
		}

		tokens, err := auth.Issue(req.Email, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"user":         devUser,
		})
	})

	authGroup := r.Group("/api/v1/user", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "user": devUser})
	})

	authGroup.GET("/viewAttendance", func(c *gin.Context) {
		claims := mustClaims(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": store.List(claims.Email)})
	})

	authGroup.POST("/attendance", func(c *gin.Context) {
		claims := mustClaims(c)

		var req struct {
			Image        string `json:"image" binding:"required"`
			Location     string `json:"location" binding:"required"`
			LocationName string `json:"locationName"`
			Purpose      string `json:"purpose" binding:"required"`
			SubPurpose   string `json:"subPurpose"`
			Feedback     string `json:"feedback"`
			Timestamp    string `json:"timestamp"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image, location and purpose are required"})
			return
		}

		rec := attendance.Record{
			Image:        req.Image,
			LocationName: req.LocationName,
			Purpose:      req.Purpose,
			SubPurpose:   req.SubPurpose,
			Feedback:     req.Feedback,
			Timestamp:    time.Now().UTC(),
		}
		if ts, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			rec.Timestamp = ts
		}

		// The location field arrives as a JSON-encoded string; a
		// malformed one is stored without coordinates rather than
		// rejected.
		var coords struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := json.Unmarshal([]byte(req.Location), &coords); err == nil {
			rec.Lat = coords.Lat
			rec.Lng = coords.Lng
			rec.HasCoords = true
		}

		stored := store.Append(claims.Email, rec)
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Attendance marked", "id": stored.ID})
	})

	authGroup.POST("/calculateDistance", func(c *gin.Context) {
		claims := mustClaims(c)

		var req struct {
			Date string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Date is required"})
			return
		}
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Date must be YYYY-MM-DD"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":               true,
			"pointToPointDistances": store.Distances(claims.Email, req.Date),
		})
	})

	return r
}

func mustClaims(c *gin.Context) auth.Claims {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return claims
}
