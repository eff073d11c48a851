package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type plantRequest struct {
	Name          string   `json:"name" binding:"required,max=200"`
	Alias         *string  `json:"alias"`
	Price         *float64 `json:"price" binding:"omitempty,gte=0"`
	DeliveryFee   *float64 `json:"delivery_fee" binding:"omitempty,gte=0"`
	PurchasedFrom *string  `json:"purchased_from"`
	PurchasedWhen *string  `json:"purchased_when" binding:"omitempty,isodate"`
	ReceivedWhen  *string  `json:"received_when" binding:"omitempty,isodate"`
	PurchaseNotes *string  `json:"purchase_notes"`
	Status        string   `json:"status" binding:"omitempty,plantstatus"`
	ProfilePhoto  *string  `json:"profile_photo"`
}

// apply copies the request onto p. Blank optional strings clear the field.
func (r *plantRequest) apply(p *types.Plant) {
	p.Name = r.Name
	p.Alias = trimmed(r.Alias)
	p.Price = r.Price
	p.DeliveryFee = r.DeliveryFee
	p.PurchasedFrom = trimmed(r.PurchasedFrom)
	p.PurchasedWhen = trimmed(r.PurchasedWhen)
	p.ReceivedWhen = trimmed(r.ReceivedWhen)
	p.PurchaseNotes = trimmed(r.PurchaseNotes)
	p.Status = types.PlantStatus(r.Status)
	p.ProfilePhoto = trimmed(r.ProfilePhoto)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return types.OptionalString(*s)
}

// ownedPath rejects photo paths outside the user's upload folders.
func ownedPath(userID int64, public string) error {
	segs, err := photos.Segments(public)
	if err != nil {
		return err
	}
	if len(segs) < 2 || segs[0] != strconv.FormatInt(userID, 10) {
		return invalid("photo path does not belong to the current user")
	}
	return nil
}

// attachPhoto moves a temp upload into the plant folder and returns the
// path to store.
func (s *Server) attachPhoto(userID int64, plantName, public string) (string, error) {
	if err := ownedPath(userID, public); err != nil {
		return "", err
	}
	if !photos.IsTemp(userID, public) {
		return public, nil
	}
	return s.store.MoveToPlantFolder(userID, public, plantName)
}

// attachProfile rewrites p.ProfilePhoto after attachPhoto.
func (s *Server) attachProfile(userID int64, p *types.Plant) error {
	if p.ProfilePhoto == nil {
		return nil
	}
	next, err := s.attachPhoto(userID, p.Name, *p.ProfilePhoto)
	if err != nil {
		return err
	}
	p.ProfilePhoto = &next
	return nil
}

// ensureVendorTag records the plant's purchased_from value as a tag.
func (s *Server) ensureVendorTag(c *gin.Context, p *types.Plant) error {
	if p.PurchasedFrom == nil {
		return nil
	}
	return s.diary.Tags().Ensure(c.Request.Context(), userID(c),
		&types.Tag{TagName: *p.PurchasedFrom, TagType: types.TagPurchasedFrom})
}

func (s *Server) listPlants(c *gin.Context) {
	filter := types.PlantFilter{
		Status:        types.PlantStatus(c.Query("status")),
		PurchasedFrom: c.Query("purchased_from"),
		Query:         c.Query("q"),
		Sort:          types.PlantSort(c.Query("sort")),
		Order:         types.SortOrder(c.Query("order")),
	}
	plants, err := s.diary.Plants().List(c.Request.Context(), userID(c), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plants)
}

func (s *Server) getPlant(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.diary.Plants().Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createPlant(c *gin.Context) {
	var req plantRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	uid := userID(c)
	p := &types.Plant{}
	req.apply(p)
	if err := p.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.attachProfile(uid, p); err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.diary.Plants().Create(c.Request.Context(), uid, p); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ensureVendorTag(c, p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updatePlant(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req plantRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), userID(c)
	p, err := s.diary.Plants().Get(ctx, uid, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	oldName := p.Name
	req.apply(p)
	if err := p.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.attachProfile(uid, p); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Plants().Update(ctx, uid, p); err != nil {
		s.fail(c, err)
		return
	}
	if p.Name != oldName {
		if err := s.jobs.RelocatePlant(ctx, uid, p, oldName); err != nil {
			s.fail(c, err)
			return
		}
	}
	if err := s.ensureVendorTag(c, p); err != nil {
		s.fail(c, err)
		return
	}
	// Reload for the derived last_watered value.
	fresh, err := s.diary.Plants().Get(ctx, uid, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

func (s *Server) deletePlant(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), userID(c)
	p, err := s.diary.Plants().Get(ctx, uid, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Plants().Delete(ctx, uid, id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.DeletePlantFolder(uid, p.Name); err != nil {
		s.logger.Warn("plant folder not removed", "plant_id", id, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plant deleted successfully"})
}
