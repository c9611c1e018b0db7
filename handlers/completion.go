package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/certificate"
	"learnly/store"
)

// MarkPostComplete records the post as completed by the caller. Three
// outcomes: already completed (400), completed (200 with the updated
// list), or completed and the category is now fully done (200 with the
// freshly issued certificate).
func MarkPostComplete(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}
	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	// Generation fetches a remote asset and renders a PDF, so this
	// budget is wider than the usual query timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := issuer.MarkPostComplete(ctx, userID, postID)
	switch {
	case errors.Is(err, certificate.ErrAlreadyCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post already completed"})
		return
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User or post not found"})
		return
	case err != nil:
		log.Printf("MarkPostComplete error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark post complete"})
		return
	}

	if result.Certificate != nil {
		c.JSON(http.StatusOK, gin.H{
			"message":        "Category completed! Your certificate has been issued.",
			"completedPosts": result.CompletedPosts,
			"certificate":    result.Certificate,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Post marked as completed",
		"completedPosts": result.CompletedPosts,
	})
}
