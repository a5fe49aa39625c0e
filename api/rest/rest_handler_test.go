package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/api/rest"
	"github.com/zlnvch/placebot/charge"
	eventsmocks "github.com/zlnvch/placebot/events/mocks"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/service"
	"github.com/zlnvch/placebot/settings"
	storemocks "github.com/zlnvch/placebot/store/mocks"
	"github.com/zlnvch/placebot/token"
	"github.com/zlnvch/placebot/worker"
)

func setupHandler(t *testing.T) (*rest.Handler, *storemocks.MockStore, string) {
	t.Helper()
	mockStore := new(storemocks.MockStore)
	mockEvents := new(eventsmocks.MockEvents)

	svc := service.NewService(
		mockStore,
		mockEvents,
		token.NewBroker(),
		charge.NewPredictor(),
		settings.NewManager(settings.Default()),
		worker.NewStatusBatcher(mockStore, mockEvents, 1000),
		[]byte("secret"),
		"hunter2",
	)

	mockEvents.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	mockEvents.On("AppendRecent", mock.Anything, mock.Anything).Return(nil).Maybe()

	authToken, err := svc.Login("hunter2")
	require.NoError(t, err)

	return rest.NewHandler(svc), mockStore, authToken
}

const createTemplateBody = `{
	"name": "logo",
	"image": {"width": 1, "height": 1, "data": [[1]]},
	"anchor": {"tileX": 5, "tileY": 9, "pixelX": 10, "pixelY": 20},
	"userIds": ["u1"]
}`

func TestHandleTemplates_CreateRespondsWithJSON(t *testing.T) {
	handler, mockStore, authToken := setupHandler(t)

	mockStore.On("ListTemplates", mock.Anything).Return([]models.Template{}, nil)
	mockStore.On("GetUser", mock.Anything, "u1").Return(models.User{Id: "u1"}, nil)
	mockStore.On("CreateTemplate", mock.Anything, mock.Anything).Return(models.Template{Id: "tpl-1", Name: "logo"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(createTemplateBody))
	req.Header.Set("Authorization", "Bearer "+authToken)
	resp := httptest.NewRecorder()
	handler.HandleTemplates(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var created models.Template
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "tpl-1", created.Id)
}

func TestHandleTemplates_DuplicateNameConflicts(t *testing.T) {
	handler, mockStore, authToken := setupHandler(t)

	mockStore.On("ListTemplates", mock.Anything).Return([]models.Template{{Id: "tpl-0", Name: "logo"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(createTemplateBody))
	req.Header.Set("Authorization", "Bearer "+authToken)
	resp := httptest.NewRecorder()
	handler.HandleTemplates(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	mockStore.AssertNotCalled(t, "CreateTemplate", mock.Anything, mock.Anything)
}

func TestHandleTemplates_RejectsMissingToken(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/templates", nil)
	resp := httptest.NewRecorder()
	handler.HandleTemplates(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
