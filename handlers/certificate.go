package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"learnly/models"
	"learnly/store"
)

// GetCertificate resolves a unique id to public certificate metadata.
// No auth: this is the verification endpoint printed on the PDF.
func GetCertificate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cert, err := certStore.FindByUniqueID(ctx, c.Param("uniqueId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
		return
	}
	if err != nil {
		log.Printf("GetCertificate error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch certificate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uniqueId":  cert.UniqueID,
		"ownerName": cert.OwnerName,
		"category":  cert.Category,
		"issuedAt":  cert.IssuedAt,
	})
}

// DownloadCertificate streams the stored PDF. A registry record whose
// file has since been deleted is a not-found, not a server error.
func DownloadCertificate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cert, err := certStore.FindByUniqueID(ctx, c.Param("uniqueId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
		return
	}
	if err != nil {
		log.Printf("DownloadCertificate error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch certificate"})
		return
	}

	if _, err := os.Stat(cert.FileLocation); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate file not found"})
		return
	}

	c.FileAttachment(cert.FileLocation, "certificate-"+cert.UniqueID+".pdf")
}

// SearchCertificates filters the registry by owner name, unique id
// and/or issue date. Filters are AND-combined; none means everything.
func SearchCertificates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := store.CertificateFilter{
		OwnerName: c.Query("userName"),
		UniqueID:  c.Query("uniqueId"),
		Date:      c.Query("date"),
	}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
	}

	certs, err := certStore.Search(ctx, filter)
	if err != nil {
		log.Printf("SearchCertificates error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search certificates"})
		return
	}

	if certs == nil {
		certs = []models.Certificate{}
	}
	c.JSON(http.StatusOK, certs)
}
