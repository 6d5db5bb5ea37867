// Package cryptoapi exposes stored keys and the encryption methods built from
// them over HTTP.
package cryptoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/errtag"
	"github.com/joshjon/cryptkit/id"
	"github.com/joshjon/cryptkit/keystore"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/paginate"
	"github.com/joshjon/cryptkit/server"
)

const algorithmQueryParam = "algorithm"

type HandlerOption func(h *Handler)

// WithDefaultAlgorithm sets the algorithm used when a key creation request
// names none.
func WithDefaultAlgorithm(alg encrypt.Algorithm) HandlerOption {
	return func(h *Handler) {
		h.defaultAlg = alg
	}
}

type Handler struct {
	store      keystore.Store
	logger     log.Logger
	defaultAlg encrypt.Algorithm
}

func NewHandler(store keystore.Store, logger log.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/algorithms", h.ListAlgorithms)
	g.POST("/keys", h.CreateKey)
	g.GET("/keys", h.ListKeys)
	g.GET("/keys/:id", h.GetKey)
	g.DELETE("/keys/:id", h.DeleteKey)
	g.POST("/encrypt", h.Encrypt)
	g.POST("/decrypt", h.Decrypt)
}

func (h *Handler) ListAlgorithms(c echo.Context) error {
	algs := encrypt.Algorithms()
	out := make([]Algorithm, len(algs))
	for i, alg := range algs {
		out[i] = algorithmFromCatalog(alg)
	}
	return server.SetResponse(c, http.StatusOK, out)
}

func (h *Handler) CreateKey(c echo.Context) error {
	var req CreateKeyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Algorithm == "" && h.defaultAlg != nil {
		req.Algorithm = h.defaultAlg.ID()
	}
	if err := req.Validate(); err != nil {
		return err
	}
	alg, err := encrypt.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return err
	}

	rec, err := keystore.Generate(c.Request().Context(), h.store, alg)
	if err != nil {
		return err
	}
	h.logger.Info("key generated", "key_id", rec.ID.String(), "algorithm", rec.Algorithm)

	key, err := keyFromRecord(rec)
	if err != nil {
		return err
	}
	return server.SetResponse(c, http.StatusCreated, key)
}

func (h *Handler) ListKeys(c echo.Context) error {
	ctx := c.Request().Context()
	algorithm := c.QueryParam(algorithmQueryParam)

	recs, cursor, err := paginate.Paginate(c, paginate.Config[keystore.Record, id.KeyID]{
		CursorParser: paginate.KeyIDCursorParser(),
		CursorGetter: func(rec keystore.Record) string { return rec.ID.String() },
		Lister: func(filter paginate.PageFilter[id.KeyID]) ([]keystore.Record, error) {
			return h.store.List(ctx, keystore.ListFilter{
				Algorithm: algorithm,
				After:     filter.Cursor,
				Limit:     filter.Size,
			})
		},
	})
	if err != nil {
		return err
	}

	keys := make([]Key, 0, len(recs))
	for _, rec := range recs {
		key, err := keyFromRecord(rec)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	return server.SetResponseList(c, http.StatusOK, keys, cursor)
}

func (h *Handler) GetKey(c echo.Context) error {
	keyID, err := parseKeyID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	rec, err := h.store.Get(c.Request().Context(), keyID)
	if err != nil {
		return err
	}
	key, err := keyFromRecord(rec)
	if err != nil {
		return err
	}
	return server.SetResponse(c, http.StatusOK, key)
}

func (h *Handler) DeleteKey(c echo.Context) error {
	keyID, err := parseKeyID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err = h.store.Delete(c.Request().Context(), keyID); err != nil {
		return err
	}
	h.logger.Info("key deleted", "key_id", keyID.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Encrypt(c echo.Context) error {
	req, err := server.BindRequest[EncryptRequest](c)
	if err != nil {
		return err
	}
	keyID, err := parseKeyID(req.KeyID, "key_id")
	if err != nil {
		return err
	}

	opts := []keystore.MethodOption{keystore.WithEncryptOptions(encrypt.WithLogger(h.logger))}
	if req.CorrespondentKeyID != "" {
		correspondentID, err := parseKeyID(req.CorrespondentKeyID, "correspondent_key_id")
		if err != nil {
			return err
		}
		opts = append(opts, keystore.WithCorrespondent(correspondentID))
	}

	ctx := c.Request().Context()
	method, err := keystore.Method(ctx, h.store, keyID, opts...)
	if err != nil {
		return err
	}
	ciphertext, err := method.EncryptToText(ctx, encrypt.NewText(req.Text))
	if err != nil {
		return err
	}
	return server.SetResponse(c, http.StatusOK, EncryptResponse{Ciphertext: ciphertext})
}

func (h *Handler) Decrypt(c echo.Context) error {
	req, err := server.BindRequest[DecryptRequest](c)
	if err != nil {
		return err
	}
	keyID, err := parseKeyID(req.KeyID, "key_id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	method, err := keystore.Method(ctx, h.store, keyID, keystore.WithEncryptOptions(encrypt.WithLogger(h.logger)))
	if err != nil {
		return err
	}
	v, err := method.DecryptFromText(ctx, req.Ciphertext)
	if err != nil {
		return err
	}
	text, ok := v.(*encrypt.Text)
	if !ok {
		return errtag.NewTagged[errtag.Unprocessable](
			fmt.Sprintf("decrypted value is %T, not text", v),
			errtag.WithMsg("ciphertext does not hold text"),
		)
	}
	return server.SetResponse(c, http.StatusOK, DecryptResponse{Text: text.Value})
}

func parseKeyID(raw string, field string) (id.KeyID, error) {
	keyID, err := id.ParseKeyID(raw)
	if err != nil {
		return id.KeyID{}, errtag.Tag[errtag.InvalidArgument](
			fmt.Errorf("parse %s: %w", field, err),
			errtag.WithMsgf("%s must be a key id such as 'key_01h455vb4pex5vsknk084sn02q'", field),
		)
	}
	return keyID, nil
}
