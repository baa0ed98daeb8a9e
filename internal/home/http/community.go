package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/pkg/httpx"
	"github.com/hearth-im/hearth/pkg/idx"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (idx.ID, error) {
	return idx.Parse(r.PathValue(name))
}

type serverResponse struct {
	ID      idx.ID `json:"id"`
	Name    string `json:"name"`
	OwnerID idx.ID `json:"owner_id"`
}

func toServerResponse(s domain.Server) serverResponse {
	return serverResponse{ID: s.ID, Name: s.Name, OwnerID: s.OwnerID}
}

type createServerRequest struct {
	Name string `json:"name"`
}

// createServer: any authenticated local user may create a community server.
func (h *handlers) createServer(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	cp, ok := sess.Principal().(domain.ClientPrincipal)
	if !ok {
		httpx.WriteError(w, r, httpx.ErrForbidden)
		return
	}

	var req createServerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}

	srv, err := h.community.CreateServer(r.Context(), cp.UserID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusCreated, toServerResponse(srv))
}

func (h *handlers) listServers(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	servers, err := h.community.ListServers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]serverResponse, 0, len(servers))
	for _, s := range servers {
		out = append(out, toServerResponse(s))
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

func (h *handlers) getServer(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	id, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}
	srv, err := h.community.GetServer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, toServerResponse(srv))
}

func (h *handlers) deleteServer(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	id, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}
	if err := h.community.DeleteServer(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID idx.ID `json:"user_id"`
	Role   string `json:"role"`
}

func (h *handlers) addMember(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	serverID, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}

	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleMember
	}

	if err := h.community.AddMember(r.Context(), serverID, req.UserID, req.Role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberResponse struct {
	UserID idx.ID `json:"user_id"`
	Role   string `json:"role"`
}

// listMembers is federation-only: peers query which local users belong to a
// space before delegating for them.
func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	serverID, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}
	members, err := h.community.ListMembers(r.Context(), serverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{UserID: m.UserID, Role: m.Role})
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

type channelResponse struct {
	ID       idx.ID `json:"id"`
	ServerID idx.ID `json:"server_id"`
	Name     string `json:"name"`
	Topic    string `json:"topic,omitempty"`
}

type createChannelRequest struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

func (h *handlers) createChannel(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	serverID, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}

	var req createChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}

	ch, err := h.community.CreateChannel(r.Context(), serverID, req.Name, req.Topic)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusCreated, channelResponse{
		ID: ch.ID, ServerID: ch.ServerID, Name: ch.Name, Topic: ch.Topic,
	})
}

func (h *handlers) listChannels(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	serverID, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return
	}
	channels, err := h.community.ListChannels(r.Context(), serverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]channelResponse, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelResponse{ID: ch.ID, ServerID: ch.ServerID, Name: ch.Name, Topic: ch.Topic})
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

func (h *handlers) deleteChannel(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	ch, ok := h.channelInServer(w, r)
	if !ok {
		return
	}
	if err := h.community.DeleteChannel(r.Context(), ch.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postMessageRequest struct {
	Body string `json:"body"`
}

type messageResponse struct {
	ID           idx.ID `json:"id"`
	ChannelID    idx.ID `json:"channel_id"`
	AuthorName   string `json:"author_name"`
	AuthorDomain string `json:"author_domain,omitempty"`
	Body         string `json:"body"`
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	ch, ok := h.channelInServer(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Body == "" {
		httpx.WriteError(w, r, httpx.ErrInvalidRequest)
		return
	}

	msg, err := h.community.PostMessage(r.Context(), ch.ID, sess.Principal(), req.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusCreated, messageResponse{
		ID: msg.ID, ChannelID: msg.ChannelID,
		AuthorName: msg.AuthorName, AuthorDomain: msg.AuthorDomain, Body: msg.Body,
	})
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request, _ *service.Session) {
	ch, ok := h.channelInServer(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := h.community.ListMessages(r.Context(), ch.ID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID: m.ID, ChannelID: m.ChannelID,
			AuthorName: m.AuthorName, AuthorDomain: m.AuthorDomain, Body: m.Body,
		})
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

// channelInServer loads the channel from the path and checks it belongs to
// the server the caller was authorized against.
func (h *handlers) channelInServer(w http.ResponseWriter, r *http.Request) (domain.Channel, bool) {
	serverID, err := pathID(r, "server_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return domain.Channel{}, false
	}
	channelID, err := pathID(r, "channel_id")
	if err != nil {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return domain.Channel{}, false
	}

	ch, err := h.community.GetChannel(r.Context(), channelID)
	if err != nil {
		writeServiceError(w, r, err)
		return domain.Channel{}, false
	}
	if ch.ServerID != serverID {
		httpx.WriteError(w, r, httpx.ErrNotFound)
		return domain.Channel{}, false
	}
	return ch, true
}
