package app

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/storage"
	"github.com/stolasapp/animes/internal/storage/db"
)

const (
	animeNotFound = "Anime not found"
	nameParam     = "name"
)

var sortableAnimeColumns = []string{
	string(db.AnimeColumnID),
	string(db.AnimeColumnName),
}

type animePostRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type animePutRequest struct {
	ID   uint64 `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required,max=255"`
}

type animeHandler struct {
	store   storage.Animes
	filters *pagination.FilterEnv
}

func (h animeHandler) register(e *echo.Echo) {
	animes := e.Group("/animes")
	animes.GET("", h.list)
	animes.GET("/all", h.listAll)
	animes.GET("/findByName", h.findByName)
	animes.GET("/:id", h.get)

	admin := animes.Group("/admin")
	admin.POST("", h.create)
	admin.PUT("", h.replace)
	admin.DELETE("/:id", h.delete)
}

// list godoc
// @Summary List animes paginated
// @Description USER role required. The default page size is 20; use size to change it.
// @Tags anime
// @Produce json
// @Security BasicAuth
// @Param page query int false "Zero-based page index"
// @Param size query int false "Page size (max 2000)"
// @Param sort query string false "Sort property and direction, e.g. name,desc"
// @Param filter query string false "CEL expression over this.id and this.name"
// @Success 200 {object} pagination.Page[db.Anime]
// @Failure 400 {object} echo.HTTPError
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError
// @Router /animes [get]
func (h animeHandler) list(c echo.Context) error {
	pageable, err := pagination.Parse(c.QueryParams(), sortableAnimeColumns...)
	if err != nil {
		return toHTTPError(err)
	}
	ctx := c.Request().Context()

	var page pagination.Page[db.Anime]
	if pageable.Filter == "" {
		page, err = h.listPage(ctx, pageable)
	} else {
		page, err = h.listFiltered(ctx, pageable)
	}
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h animeHandler) listPage(ctx context.Context, pageable pagination.Pageable) (pagination.Page[db.Anime], error) {
	animes, total, err := h.store.ListAnimes(ctx, storage.AnimePage{
		Offset:  pageable.Offset(),
		Limit:   pageable.Size,
		OrderBy: db.AnimeColumn(pageable.Sort.Property),
		Desc:    pageable.Sort.Desc,
	})
	if err != nil {
		return pagination.Page[db.Anime]{}, err
	}
	return pagination.NewPage(animes, pageable, total), nil
}

// listFiltered evaluates the filter against every anime, so the page
// window and totals are computed in memory after filtering.
func (h animeHandler) listFiltered(ctx context.Context, pageable pagination.Pageable) (pagination.Page[db.Anime], error) {
	filter, err := h.filters.Compile(pageable.Filter)
	if err != nil {
		return pagination.Page[db.Anime]{}, err
	}
	all, err := h.store.ListAllAnimes(ctx)
	if err != nil {
		return pagination.Page[db.Anime]{}, err
	}
	matched, err := pagination.Apply(ctx, filter, all, animeFields)
	if err != nil {
		return pagination.Page[db.Anime]{}, err
	}
	sortAnimes(matched, pageable.Sort)
	return pagination.NewPage(
		pagination.Slice(matched, pageable),
		pageable,
		int64(len(matched)),
	), nil
}

// listAll godoc
// @Summary List all animes
// @Description USER role required.
// @Tags anime
// @Produce json
// @Security BasicAuth
// @Success 200 {array} db.Anime
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError
// @Router /animes/all [get]
func (h animeHandler) listAll(c echo.Context) error {
	animes, err := h.store.ListAllAnimes(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, animes)
}

// get godoc
// @Summary Get an anime by id
// @Description USER role required.
// @Tags anime
// @Produce json
// @Security BasicAuth
// @Param id path int true "Anime id"
// @Success 200 {object} db.Anime
// @Failure 400 {object} echo.HTTPError "When the anime does not exist"
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError
// @Router /animes/{id} [get]
func (h animeHandler) get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	anime, err := h.store.GetAnime(c.Request().Context(), id)
	if err != nil {
		return notFoundAs(err, animeNotFound)
	}
	return c.JSON(http.StatusOK, anime)
}

// findByName godoc
// @Summary Find animes by exact name
// @Description USER role required. Example: ?name=hellsing
// @Tags anime
// @Produce json
// @Security BasicAuth
// @Param name query string true "Anime name"
// @Success 200 {array} db.Anime
// @Failure 400 {object} echo.HTTPError
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError
// @Router /animes/findByName [get]
func (h animeHandler) findByName(c echo.Context) error {
	names, ok := c.QueryParams()[nameParam]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Required parameter 'name' is not present")
	}
	animes, err := h.store.FindAnimesByName(c.Request().Context(), names[0])
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, animes)
}

// create godoc
// @Summary Create an anime
// @Description ADMIN role required.
// @Tags anime
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param anime body animePostRequest true "Anime to create"
// @Success 201 {object} db.Anime
// @Failure 400 {object} echo.HTTPError
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError "When the caller is not an ADMIN"
// @Router /animes/admin [post]
func (h animeHandler) create(c echo.Context) error {
	var req animePostRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	anime, err := h.store.CreateAnime(c.Request().Context(), db.Anime{Name: req.Name})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, anime)
}

// replace godoc
// @Summary Replace an anime
// @Description ADMIN role required.
// @Tags anime
// @Accept json
// @Security BasicAuth
// @Param anime body animePutRequest true "Anime to replace"
// @Success 204
// @Failure 400 {object} echo.HTTPError "When the anime does not exist"
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError "When the caller is not an ADMIN"
// @Router /animes/admin [put]
func (h animeHandler) replace(c echo.Context) error {
	var req animePutRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	err := h.store.ReplaceAnime(c.Request().Context(), db.Anime{
		ID:   req.ID,
		Name: req.Name,
	})
	if err != nil {
		return notFoundAs(err, animeNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// delete godoc
// @Summary Delete an anime
// @Description ADMIN role required.
// @Tags anime
// @Security BasicAuth
// @Param id path int true "Anime id"
// @Success 204
// @Failure 400 {object} echo.HTTPError "When the anime does not exist"
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError "When the caller is not an ADMIN"
// @Router /animes/admin/{id} [delete]
func (h animeHandler) delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err = h.store.DeleteAnime(c.Request().Context(), id); err != nil {
		return notFoundAs(err, animeNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id").WithInternal(err)
	}
	return id, nil
}

func animeFields(anime db.Anime) map[string]any {
	return map[string]any{
		string(db.AnimeColumnID):   int64(anime.ID), //nolint:gosec // snowflake IDs fit in 63 bits
		string(db.AnimeColumnName): anime.Name,
	}
}

// sortAnimes orders animes the same way as the paged query: by the sort
// property, with name ties broken by ascending ID.
func sortAnimes(animes []db.Anime, sort pagination.Sort) {
	byName := db.AnimeColumn(sort.Property) == db.AnimeColumnName
	slices.SortStableFunc(animes, func(a, b db.Anime) int {
		if !byName {
			return direction(cmp.Compare(a.ID, b.ID), sort.Desc)
		}
		if order := direction(cmp.Compare(a.Name, b.Name), sort.Desc); order != 0 {
			return order
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func direction(order int, desc bool) int {
	if desc {
		return -order
	}
	return order
}
