package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// PreviewHandler renders a campaign for a sample recipient
type PreviewHandler struct {
	campaigns CampaignReader
	logger    logrus.FieldLogger
}

// NewPreviewHandler creates a new PreviewHandler instance
func NewPreviewHandler(campaigns CampaignReader, logger logrus.FieldLogger) *PreviewHandler {
	return &PreviewHandler{
		campaigns: campaigns,
		logger:    logger,
	}
}

// PreviewRequest is the optional body of the preview endpoint
type PreviewRequest struct {
	Name string `json:"name"`
}

// Preview handles POST /campaigns/{id}/preview. An empty body previews
// with the generic recipient name.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeBodyError(w, err)
		return
	}

	result, err := h.campaigns.PreviewCampaign(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	_ = WriteOK(w, result)
}
