package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"learnly/certificate"
	"learnly/database"
	"learnly/handlers"
	"learnly/mailer"
	"learnly/routes"
	"learnly/store"
)

func main() {
	log.Println("🚀 Starting Learnly Backend Server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// ===== REQUIRED ENV VARIABLES =====
	if os.Getenv("JWT_SECRET") == "" || os.Getenv("MONGODB_URI") == "" {
		log.Fatal("❌ JWT_SECRET and MONGODB_URI must be set")
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	log.Println("🔌 Connecting to MongoDB...")

	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(); err != nil {
			dbErr = err
			log.Printf("❌ MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("❌ Failed to connect to MongoDB:", dbErr)
	}
	defer database.DisconnectMongo()

	// ===== GIN MODE =====
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		log.Println("⚙️ Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("⚙️ Running in DEBUG mode")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// ===== SERVICES =====
	users := store.NewMongoUserStore(database.Users)
	posts := store.NewMongoPostStore(database.Posts)
	certs := store.NewMongoCertificateStore(database.Certificates, database.Users)

	generator := certificate.NewGenerator(certificate.GeneratorConfig{
		BackgroundURL: envOr("CERT_BACKGROUND_URL", "https://res.cloudinary.com/learnly/image/upload/certificate-bg.png"),
		OutputDir:     envOr("CERT_OUTPUT_DIR", "./certificates"),
		VerifyBaseURL: envOr("CERT_VERIFY_URL", "http://localhost:"+port+"/api/certificates"),
		FetchTimeout:  15 * time.Second,
	})

	var mail *mailer.Mailer
	if host := os.Getenv("SMTP_HOST"); host != "" {
		smtpPort, err := strconv.Atoi(envOr("SMTP_PORT", "587"))
		if err != nil {
			log.Fatal("❌ Invalid SMTP_PORT:", err)
		}
		mail = mailer.New(mailer.Config{
			Host:     host,
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     envOr("SMTP_FROM", os.Getenv("SMTP_USER")),
		})
		log.Println("✉️ SMTP mailer configured")
	} else {
		log.Println("✉️ SMTP_HOST not set, certificate mail disabled")
	}

	var issuerMailer certificate.Mailer
	if mail != nil {
		issuerMailer = mail
	}
	issuer := certificate.NewIssuer(users, posts, certs, generator, issuerMailer)
	handlers.Init(issuer, certs, mail)

	// ===== ROUTER =====
	router := routes.SetupRouter()

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "Learnly Backend Running 🚀",
			"service": "healthy",
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server error:", err)
		}
	}()

	log.Println("✅ Server is ready and accepting connections")

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}

	log.Println("👋 Server stopped gracefully")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
