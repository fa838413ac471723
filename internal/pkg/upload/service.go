package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/api"
	"github.com/dictamed/scriba/internal/pkg/batch"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/utils"
	"github.com/dictamed/scriba/internal/pkg/watch"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// Queue accepts and tracks batch items
type Queue interface {
	Submit(in *batch.SubmitData) (batch.Item, error)
	Remove(id string) bool
	Start(id string) error
	Items() []batch.Item
	Get(id string) (batch.Item, bool)
}

// DB provides job record persistence
type DB interface {
	LoadJob(ctx context.Context, id string) (*persistence.JobRecord, error)
	LoadJobs(ctx context.Context, ownerID string) ([]*persistence.JobRecord, error)
	AssignJob(ctx context.Context, id, assignee string) error
	FinalizeJob(ctx context.Context, id, finalText string) error
}

// WSConnHandler handles watcher websocket connections
type WSConnHandler interface {
	HandleConnection(watch.WsConn) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Saver     FileSaver
	Queue     Queue
	DB        DB
	WSHandler WSConnHandler
}

const userIDHeader = "x-user-id"

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP SCRIBA service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.Queue == nil {
		return fmt.Errorf("no queue")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scriba", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	e.GET("/items", items(data))
	e.GET("/status/:id", itemStatus(data))
	e.POST("/item/:id/start", startItem(data))
	e.DELETE("/item/:id", removeItem(data))
	e.GET("/audio/:id", audio(data))
	e.GET("/jobs", jobs(data))
	e.GET("/jobs/:id", job(data))
	e.POST("/jobs/:id/assign", assign(data))
	e.POST("/jobs/:id/finalize", finalize(data))
	e.GET("/subscribe", subscribeHandler(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		if err := validateFormParams(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		file, fHeader, err := takeFile(form, api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no file")
		}
		defer file.Close()
		ext := strings.ToLower(filepath.Ext(fHeader.Filename))
		if !utils.SupportAudioExt(ext) {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file extension: "+ext)
		}
		fileName, err := utils.MakeValidateFileName("", fHeader.Filename)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file name: "+fHeader.Filename)
		}
		audio, err := io.ReadAll(file)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		duration := 0
		if ds := c.FormValue(api.PrmDuration); ds != "" {
			duration, err = strconv.Atoi(ds)
			if err != nil || duration < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "wrong duration: "+ds)
			}
		}

		it, err := data.Queue.Submit(&batch.SubmitData{FileName: fileName, Audio: audio,
			Duration:  duration,
			OwnerID:   c.FormValue(api.PrmOwnerID),
			OwnerName: c.FormValue(api.PrmOwnerName),
			UserID:    c.Request().Header.Get(userIDHeader)})
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		if err := data.Saver.SaveFile(ctx, utils.MakeFileName(it.ID, fileName),
			bytes.NewReader(audio), int64(len(audio))); err != nil {
			goapp.Log.Error().Err(err).Send()
			data.Queue.Remove(it.ID)
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		return c.JSON(http.StatusOK, watch.MakeItemView(&it))
	}
}

func items(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res := []*api.ItemView{}
		for _, it := range data.Queue.Items() {
			itInt := it
			res = append(res, watch.MakeItemView(&itInt))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func itemStatus(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		it, found := data.Queue.Get(id)
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "no item "+id)
		}
		return c.JSON(http.StatusOK, watch.MakeItemView(&it))
	}
}

func startItem(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		if err := data.Queue.Start(id); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

func removeItem(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		if !data.Queue.Remove(id) {
			return echo.NewHTTPError(http.StatusNotFound, "no item "+id)
		}
		return c.NoContent(http.StatusOK)
	}
}

func audio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("audio method")()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		it, found := data.Queue.Get(id)
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "no item "+id)
		}
		f, err := data.Saver.LoadFile(c.Request().Context(), utils.MakeFileName(it.ID, it.FileName))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "no audio for "+id)
		}
		defer f.Close()
		return c.Stream(http.StatusOK, it.Mime, f)
	}
}

func jobs(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("jobs method")()
		list, err := data.DB.LoadJobs(c.Request().Context(), c.QueryParam(api.PrmOwnerID))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := []*api.JobView{}
		for _, j := range list {
			res = append(res, makeJobView(j))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func job(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		j, err := data.DB.LoadJob(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if j == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no job "+id)
		}
		return c.JSON(http.StatusOK, makeJobView(j))
	}
}

type assignInput struct {
	Assignee string `json:"assignee"`
}

func assign(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		var inp assignInput
		if err := c.Bind(&inp); err != nil || inp.Assignee == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no assignee")
		}
		if err := data.DB.AssignJob(c.Request().Context(), id, inp.Assignee); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

type finalizeInput struct {
	FinalText string `json:"finalText"`
}

func finalize(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		var inp finalizeInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if err := data.DB.FinalizeJob(c.Request().Context(), id, inp.FinalText); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}

func makeJobView(j *persistence.JobRecord) *api.JobView {
	return &api.JobView{ID: j.ID, JobNumber: j.JobNumber, OwnerID: j.OwnerID, OwnerName: j.OwnerName,
		FileName: j.FileName, Uploaded: j.Uploaded.Format(time.RFC3339), Duration: j.DurationSecs,
		CharCount: j.CharCount, WordCount: j.WordCount, Status: j.Status,
		AssignedTo: utils.FromSQLStr(j.AssignedTo), FinalText: j.FinalText}
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	allowed := map[string]bool{api.PrmOwnerID: true, api.PrmOwnerName: true, api.PrmDuration: true}
	for k := range form.Value {
		_, f := allowed[k]
		if !f {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	return validateFormFiles(form)
}

func validateFormFiles(form *multipart.Form) error {
	check := make(map[string]bool)
	if form != nil {
		for k := range form.File {
			check[k] = true
		}
	}
	if !check[api.PrmFile] {
		return errors.New("no form file parameter 'file'")
	}
	delete(check, api.PrmFile)
	for k := range check {
		return errors.Errorf("unexpected form file parameters '%v'", k)
	}
	return nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	handler := takeFirst(form.File[paramName], nil)
	if handler == nil {
		return nil, nil, http.ErrMissingFile
	}
	file, err := handler.Open()
	return file, handler, err
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}
