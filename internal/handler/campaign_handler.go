package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/service"
)

// maxBodyBytes caps request bodies; every body here is a few fields
const maxBodyBytes = 1 << 20

// Dispatcher runs a campaign dispatch synchronously
type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string) (*models.DispatchResult, error)
}

// CampaignReader is the campaign service surface the handlers use
type CampaignReader interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	PreviewCampaign(ctx context.Context, id, name string) (*service.PreviewResult, error)
	QueueDispatch(ctx context.Context, id string) (*models.DispatchJob, error)
}

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	dispatcher Dispatcher
	campaigns  CampaignReader
	logger     logrus.FieldLogger
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(dispatcher Dispatcher, campaigns CampaignReader, logger logrus.FieldLogger) *CampaignHandler {
	return &CampaignHandler{
		dispatcher: dispatcher,
		campaigns:  campaigns,
		logger:     logger,
	}
}

// SendRequest is the body of POST /campaigns/send
type SendRequest struct {
	CampaignID string `json:"campaignId"`
}

// QueuedResponse is returned by the async send endpoint
type QueuedResponse struct {
	CampaignID string `json:"campaignId"`
	RequestID  string `json:"requestId"`
	Status     string `json:"status"`
}

// Send handles POST /campaigns/send with the campaign id in the body
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeBodyError(w, err)
		return
	}

	h.dispatch(w, r, strings.TrimSpace(req.CampaignID))
}

// SendByID handles POST /campaigns/{id}/send
func (h *CampaignHandler) SendByID(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, mux.Vars(r)["id"])
}

func (h *CampaignHandler) dispatch(w http.ResponseWriter, r *http.Request, campaignID string) {
	if campaignID == "" {
		WriteDispatchFailure(w, h.logger, "", &service.ValidationError{Message: "campaignId is required"})
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), campaignID)
	if err != nil {
		WriteDispatchFailure(w, h.logger, campaignID, err)
		return
	}

	_ = WriteOK(w, result)
}

// SendAsync handles POST /campaigns/{id}/send-async
func (h *CampaignHandler) SendAsync(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["id"]

	job, err := h.campaigns.QueueDispatch(r.Context(), campaignID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	_ = WriteAccepted(w, QueuedResponse{
		CampaignID: job.CampaignID,
		RequestID:  job.RequestID,
		Status:     "queued",
	})
}

// GetByID handles GET /campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetCampaign(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	_ = WriteOK(w, campaign)
}

var errEmptyBody = errors.New("request body is empty")

// decodeBody reads a JSON body. allowEmpty lets an absent body decode to
// the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		if allowEmpty {
			return nil
		}
		return errEmptyBody
	}
	return err
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errEmptyBody) {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
		return
	}
	WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
}
