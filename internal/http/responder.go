package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/scheduler"
)

var (
	errBadRequestBody   = errors.New("Formato de requisição inválido.")
	errInvalidRoomID    = errors.New("ID de sala inválido.")
	errInvalidRequestID = errors.New("ID de reserva inválido.")
	errInvalidWindow    = errors.New("Parâmetros from/to devem estar no formato RFC 3339.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application and scheduling errors to responses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorKind: kind,
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorKind: kind,
			Message:   localizedStatusMessage(http.StatusNotFound),
		})
	case errors.Is(err, application.ErrConflict),
		errors.Is(err, application.ErrAlreadyReviewed),
		errors.Is(err, application.ErrAlreadyExists),
		errors.Is(err, application.ErrRoomInUse),
		errors.Is(err, application.ErrRoomInactive):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorKind: kind,
			Message:   conflictMessage(err),
		})
	case scheduler.ErrorKind(err) != "":
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorKind: kind,
			Message:   schedulingMessage(err),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorKind: kind,
			Message:   localizedStatusMessage(http.StatusInternalServerError),
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "O conteúdo da requisição está incorreto."
	case http.StatusNotFound:
		return "O recurso solicitado não foi encontrado."
	case http.StatusMethodNotAllowed:
		return "Método não permitido para este recurso."
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Os dados informados contêm erros."
	default:
		return "Ocorreu um erro interno no servidor."
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrConflict):
		return "O horário conflita com uma reserva já aprovada."
	case errors.Is(err, application.ErrAlreadyReviewed):
		return "Este item já foi avaliado."
	case errors.Is(err, application.ErrAlreadyExists):
		return "Já existe uma sala com este nome."
	case errors.Is(err, application.ErrRoomInUse):
		return "A sala possui reservas e não pode ser excluída. Desative-a."
	case errors.Is(err, application.ErrRoomInactive):
		return "A sala está desativada e não aceita novas reservas."
	default:
		return localizedStatusMessage(http.StatusConflict)
	}
}

func schedulingMessage(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrInvalidTimeRange):
		return "O término deve ser posterior ao início."
	case errors.Is(err, scheduler.ErrUnboundedRecurrence):
		return "A recorrência gera ocorrências demais."
	case errors.Is(err, scheduler.ErrInvalidRecurrenceSpec):
		return "A regra de recorrência é inválida."
	case errors.Is(err, scheduler.ErrInvalidDate):
		return "Data inválida."
	default:
		return localizedStatusMessage(http.StatusUnprocessableEntity)
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "O nome da sala é obrigatório."
	case "location is required":
		return "A localização é obrigatória."
	case "capacity must be positive":
		return "A capacidade deve ser um número inteiro positivo."
	case "requester is required":
		return "O solicitante é obrigatório."
	case "reviewer is required":
		return "O avaliador é obrigatório."
	case "participants must be positive":
		return "O número de participantes deve ser positivo."
	case "no occurrence starts in the future":
		return "Nenhuma ocorrência começa no futuro."
	case "to must be after from":
		return "O fim do intervalo deve ser posterior ao início."
	case "is required":
		return "Campo obrigatório."
	case "is invalid":
		return "Valor inválido."
	default:
		if limit, ok := strings.CutPrefix(message, "must be at most "); ok {
			return "Deve ter no máximo " + limit + "."
		}
		if _, limit, ok := strings.Cut(message, " must be at most "); ok {
			return "Deve ter no máximo " + strings.Replace(limit, "characters", "caracteres", 1) + "."
		}
		if limit, ok := strings.CutPrefix(message, "must be at least "); ok {
			return "Deve ser no mínimo " + limit + "."
		}
		if options, ok := strings.CutPrefix(message, "must be one of "); ok {
			return "Deve ser um de: " + options + "."
		}
		return message
	}
}

type errorResponse struct {
	ErrorKind string            `json:"error_kind,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
