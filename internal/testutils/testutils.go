package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-bot-host/pkg/bothost"
	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/llm/simulated"
	"github.com/d4l-data4life/go-bot-host/pkg/metrics"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/server"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
	"github.com/d4l-data4life/go-svc/pkg/db"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ServiceSecret is the internal-route secret of the mock server
const ServiceSecret = "test-service-secret"

// StaticUsers resolves fixed tokens to user ids
type StaticUsers map[string]int64

// Resolve returns the user id registered for token
func (s StaticUsers) Resolve(token string) (int64, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("unknown token")
}

// NewTestHost creates a bot host on the test database with the simulated provider
func NewTestHost(t *testing.T) *bothost.Host {
	models.InitializeTestDB(t)
	host, err := bothost.New(bothost.Config{
		DB:       db.Get(),
		Provider: simulated.NewClient(""),
	})
	require.NoError(t, err)
	return host
}

// GetTestMockServer creates the mocked server for tests
func GetTestMockServer(t *testing.T, users StaticUsers) *server.Server {
	host := NewTestHost(t)
	corsOptions := config.CorsConfig([]string{"localhost"})
	srv := server.NewServer("TEST_SERVER", cors.New(corsOptions), 1, 10*time.Second)

	server.SetupRoutes(srv.Mux(), host, users, ServiceSecret)
	metrics.AddBuildInfoMetric()
	return srv
}

// AddTestDataToDB seeds a demo conversation with one exchange and an open session
func AddTestDataToDB(ctx context.Context, host *bothost.Host, userID int64) {
	conv, err := host.Conversations.CreateConversation(ctx, conversation.CreateInput{
		UserID:  userID,
		Title:   Pointerfy("Demo conversation"),
		Context: MustJSON(map[string]string{"source": "testdata"}),
	})
	if err != nil {
		logging.LogErrorf(err, "Error in test Setup")
		return
	}
	if _, err := host.Conversations.SendMessage(ctx, conversation.SendMessageInput{
		ConversationID: conv.ID,
		UserID:         userID,
		Message:        "Hello there",
	}); err != nil {
		logging.LogErrorf(err, "Error in test Setup")
	}

	if _, err := host.Sessions.CreateSession(ctx, session.CreateInput{
		InstanceName: "demo",
		RemoteJID:    "11999999999",
		Status:       models.SessionStatusOpened,
	}); err != nil {
		logging.LogErrorf(err, "Error in test Setup")
	}
}

// GetRequestPayload converts a given object into a reader of that obect as json payload
func GetRequestPayload(payload interface{}) io.Reader {
	bytes, _ := json.Marshal(payload)
	return strings.NewReader(string(bytes))
}

// RunningTime starts measuring runtime - usage defer Track(RunningTime("label"))
func RunningTime(s string) (string, time.Time) {
	log.Println("Start:	", s)
	return s, time.Now()
}

// Track finishes measuring runtime and prints result - usage defer Track(RunningTime("label"))
func Track(s string, startTime time.Time) {
	endTime := time.Now()
	log.Println("End:	", s, "took", endTime.Sub(startTime))
}

func MustJSON[T any](object T) datatypes.JSON {
	bytes, err := json.Marshal(object)
	if err != nil {
		logging.LogErrorfCtx(context.Background(), err, "failed marshalling to JSON")
		return nil
	}
	return bytes
}

func Pointerfy[T any](thing T) *T {
	return &thing
}
