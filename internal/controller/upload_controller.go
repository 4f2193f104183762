package controller

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"nana-be/internal/constant"
	"nana-be/internal/dto"
	"nana-be/internal/pkg/logger"
	"nana-be/internal/pkg/serverutils"
	"nana-be/internal/pkg/sse"
	"nana-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router, keyMiddleware fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	UploadStream(ctx *fiber.Ctx) error
}

type uploadController struct {
	uploadService service.IUploadService
	heartbeat     time.Duration
	logger        logger.ILogger
}

func NewUploadController(uploadService service.IUploadService, heartbeat time.Duration, log logger.ILogger) IUploadController {
	return &uploadController{
		uploadService: uploadService,
		heartbeat:     heartbeat,
		logger:        log,
	}
}

func (c *uploadController) RegisterRoutes(r fiber.Router, keyMiddleware fiber.Handler) {
	r.Post("/upload", keyMiddleware, c.Upload)
	r.Post("/upload-stream", keyMiddleware, c.UploadStream)
}

func (c *uploadController) Upload(ctx *fiber.Ctx) error {
	file, err := readUpload(ctx)
	if err != nil {
		return err
	}

	res, err := c.uploadService.Process(ctx.Context(), serverutils.APIKey(ctx), file)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

// UploadStream answers with text/event-stream. The pipeline runs on its own
// goroutine and is cancelled as soon as a write to the client fails.
func (c *uploadController) UploadStream(ctx *fiber.Ctx) error {
	file, err := readUpload(ctx)
	if err != nil {
		return err
	}
	// fasthttp recycles request buffers once the handler returns
	rawProfile := strings.Clone(ctx.FormValue("user_profile"))
	apiKey := strings.Clone(serverutils.APIKey(ctx))
	requestID := uuid.NewString()

	for k, v := range sse.Headers {
		ctx.Set(k, v)
	}

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := make(chan dto.UploadProgressEvent)
		go func() {
			defer close(events)
			c.uploadService.ProcessStream(runCtx, apiKey, file, rawProfile, func(ev dto.UploadProgressEvent) error {
				select {
				case events <- ev:
					return nil
				case <-runCtx.Done():
					return runCtx.Err()
				}
			})
		}()

		if err := sse.Pump(w, events, c.heartbeat, cancel); err != nil {
			c.logger.Info("UPLOAD", "Upload stream closed by client", map[string]interface{}{
				"request_id": requestID,
				"file":       file.Filename,
				"error":      err.Error(),
			})
		}
	})

	return nil
}

// StreamErrorHandler answers an upload stream that fiber rejected for
// exceeding the body limit with the validating and error events an oversized
// PDF gets from the pipeline. Every other error goes to next.
func StreamErrorHandler(next fiber.ErrorHandler) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if !errors.As(err, &fiberErr) || fiberErr.Code != fiber.StatusRequestEntityTooLarge ||
			!strings.HasSuffix(ctx.Path(), "/upload-stream") {
			return next(ctx, err)
		}

		var buf bytes.Buffer
		w := bufio.NewWriter(&buf)
		for _, ev := range []dto.UploadProgressEvent{
			{Step: dto.StepValidating, Message: constant.MsgValidating, ProgressPercent: dto.StepValidating.Percent()},
			{Step: dto.StepError, Message: constant.ErrMsgTooLarge, ProgressPercent: dto.StepError.Percent()},
		} {
			if werr := sse.WriteEvent(w, ev); werr != nil {
				return next(ctx, werr)
			}
		}

		for k, v := range sse.Headers {
			ctx.Set(k, v)
		}
		return ctx.Status(fiber.StatusOK).Send(buf.Bytes())
	}
}

func readUpload(ctx *fiber.Ctx) (*dto.UploadFile, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		return nil, serverutils.BadRequest("file is required", err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, serverutils.BadRequest("Failed to read uploaded file", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, serverutils.BadRequest("Failed to read uploaded file", err)
	}
	return &dto.UploadFile{Filename: header.Filename, Content: content}, nil
}
