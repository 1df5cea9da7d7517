package server

import (
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nikogura/resume-optimizer/pkg/request"
	"github.com/nikogura/resume-optimizer/pkg/runner"
	"github.com/nikogura/resume-optimizer/pkg/source"
	"github.com/pkg/errors"
)

// acceptedMessage is returned with every 202.
const acceptedMessage = "Request accepted; files will be generated in the background"

// Upload accepts multipart resume and job files plus an "optimize" JSON request and queues generation.
func (s *Server) Upload(c *fiber.Ctx) (err error) {
	resumeHeader, err := c.FormFile("resume")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "missing resume file")
	}

	jobHeader, err := c.FormFile("job")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "missing job description file")
	}

	optimize := c.FormValue("optimize")
	if optimize == "" {
		return errorJSON(c, fiber.StatusBadRequest, "missing optimize request")
	}

	req, err := request.ParseJSONWithDefaults([]byte(optimize), s.deps.DefaultTemperature, s.deps.DefaultModel)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	req.Resume, err = readUpload(resumeHeader)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	req.JobDescription, err = readUpload(jobHeader)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	return s.submit(c, req)
}

// Optimize accepts a JSON request carrying resume and job description text inline and queues generation.
func (s *Server) Optimize(c *fiber.Ctx) (err error) {
	req, err := request.ParseJSONWithDefaults(c.Body(), s.deps.DefaultTemperature, s.deps.DefaultModel)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	return s.submit(c, req)
}

// submit applies the validation gate and hands the request to the pool.
func (s *Server) submit(c *fiber.Ctx, req request.GenerationRequest) (err error) {
	err = req.Validate()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	id := uuid.New().String()
	_, err = s.deps.Submitter.SubmitWithID(id, req)
	if err != nil {
		if errors.Is(err, runner.ErrQueueFull) || errors.Is(err, runner.ErrClosed) {
			s.deps.Logger.Warn("request rejected", slog.String("request_id", id), slog.Any("error", err))
			return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	s.deps.Logger.Info("request accepted",
		slog.String("request_id", id),
		slog.Any("types", req.DocumentTypes),
		slog.String("company", req.Company))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    acceptedMessage,
		"request_id": id,
	})
}

// readUpload reads a multipart file as text.
func readUpload(header *multipart.FileHeader) (text string, err error) {
	var file multipart.File
	file, err = header.Open()
	if err != nil {
		err = errors.Wrapf(err, "failed to open upload %s", header.Filename)
		return text, err
	}
	defer file.Close()

	var data []byte
	data, err = io.ReadAll(file)
	if err != nil {
		err = errors.Wrapf(err, "failed to read upload %s", header.Filename)
		return text, err
	}

	text, err = source.Decode(data)
	return text, err
}
