package response

import "github.com/gin-gonic/gin"

// OK writes payload with a success flag merged in. payload must not carry
// its own "success" key.
func OK(c *gin.Context, payload gin.H) {
	write(c, 200, payload)
}

func Created(c *gin.Context, payload gin.H) {
	write(c, 201, payload)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
	})
}

func write(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}
