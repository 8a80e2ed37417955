package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/campusbike/session"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

const sessionKey = "session"

// Session attaches the caller's session to the request, starting a new one when the
// header is missing or unknown. A valid access token signs the session in.
func Session(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if id, err := uuid.Parse(c.GetHeader(SessionHeader)); err == nil {
			sess = store.GetOrStart(id)
		} else {
			sess = store.Start()
		}

		if sub, ok := GetAuth0ID(c); ok {
			sess.SetUser(&session.User{UID: sub, Email: GetEmail(c)})
		}

		c.Set(sessionKey, sess)
		c.Set(LoggerKey, GetLogger(c).With("session_id", sess.ID.String()))
		c.Header(SessionHeader, sess.ID.String())

		c.Next()
	}
}

// GetSession returns the session attached by Session. It panics when the middleware is
// not installed.
func GetSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
