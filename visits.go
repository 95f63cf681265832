package wayfarer

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/blob"
	"github.com/wayfarerhq/wayfarer/internal/durable"
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/remote"
)

// Attachment is one photo (or other binary) attached to a visit review.
type Attachment struct {
	Name string
	Data []byte
}

// VisitReview is the user-supplied content of a visit record. A zero Date
// means now.
type VisitReview struct {
	Date        time.Time
	Rating      int
	Text        string
	Attachments []Attachment
}

// createVisitPayload is the serialized replay body for a queued visit. It
// captures everything the server call needs so replay does not depend on
// in-memory state surviving a restart.
type createVisitPayload struct {
	ExternalID string               `json:"external_id"`
	Entity     remote.EntityPayload `json:"entity"`
	Detail     remote.DetailPayload `json:"detail"`
}

// CreateVisit records a visit review on the place with the given external id.
//
// The review is applied optimistically: the place immediately shows the new
// review and the visited flag, under a client-generated temp id. Online, the
// attachments are uploaded and the record is created server-side in one
// flow; the tentative entity is then promoted to the server-confirmed one.
// Offline, or on a transient network failure, the mutation is queued durably
// and replayed by SyncPending. A non-transient server rejection rolls the
// optimistic state back and surfaces the error.
//
// Returns errors.ErrMutationPending if another optimistic mutation is still
// outstanding.
func (c *client) CreateVisit(ctx context.Context, externalID string, review VisitReview) (*places.Place, error) {
	p, ok := c.places.Get(externalID)
	if !ok {
		return nil, errors.ErrNotFound
	}

	if review.Rating < 1 || review.Rating > 5 {
		return nil, errors.NewValidationError("rating", review.Rating, "must be between 1 and 5")
	}
	if review.Date.IsZero() {
		review.Date = time.Now()
	}

	tempID := uuid.New().String()
	groupUUID := uuid.New().String()
	ctx = logging.WithMutationID(ctx, tempID)

	paths := make([]string, len(review.Attachments))
	for i, a := range review.Attachments {
		paths[i] = blob.ObjectPath(c.config.ownerID, groupUUID, a.Name)
	}

	tentative := p.Copy()
	tentative.Visited = true
	tentative.Reviews = append(tentative.Reviews, places.Review{
		TempID: tempID,
		Date:   review.Date,
		Rating: review.Rating,
		Text:   review.Text,
		Photos: paths,
	})

	entity := remote.EntityPayload{
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Address:    p.Address,
		Lat:        p.Coordinates.Lat,
		Lng:        p.Coordinates.Lng,
	}
	detail := remote.DetailPayload{
		Date:   review.Date,
		Rating: review.Rating,
		Text:   review.Text,
		Photos: paths,
	}

	err := c.coordinator.Begin(func() error {
		return c.places.Insert(tentative)
	}, c.places)
	if err != nil {
		return nil, err
	}

	if c.remote == nil || !c.Online() {
		if err := c.queueVisit(ctx, tempID, externalID, entity, detail, paths, review.Attachments); err != nil {
			c.revert()
			return nil, err
		}
		c.saveQuiet(ctx)
		return tentative, nil
	}

	uploaded, err := c.uploadAttachments(ctx, paths, review.Attachments)
	if err != nil {
		c.removeBlobs(ctx, uploaded)
		if errors.IsTransient(err) {
			if qerr := c.queueVisit(ctx, tempID, externalID, entity, detail, paths, review.Attachments); qerr == nil {
				c.saveQuiet(ctx)
				return tentative, nil
			}
		}
		c.revert()
		return nil, err
	}

	recordID, err := c.remote.CreateRecord(ctx, entity, detail)
	if err != nil {
		c.removeBlobs(ctx, uploaded)
		if errors.IsTransient(err) {
			if qerr := c.queueVisit(ctx, tempID, externalID, entity, detail, paths, review.Attachments); qerr == nil {
				c.saveQuiet(ctx)
				return tentative, nil
			}
		}
		c.revert()
		return nil, err
	}

	confirmed := confirmVisit(tentative, tempID, recordID)
	if err := c.coordinator.Confirm(tempID, confirmed); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Confirming visit failed")
	}
	c.saveQuiet(ctx)
	return confirmed, nil
}

// queueVisit appends the visit to the durable mutation log for later replay.
// The optimistic state stays in place; the coordinator keeps the pre-mutation
// snapshot until the replay confirms or the user reverts.
func (c *client) queueVisit(ctx context.Context, tempID, externalID string, entity remote.EntityPayload, detail remote.DetailPayload, paths []string, attachments []Attachment) error {
	if c.durable == nil {
		return errors.ErrOffline
	}

	payload, err := json.Marshal(createVisitPayload{
		ExternalID: externalID,
		Entity:     entity,
		Detail:     detail,
	})
	if err != nil {
		return err
	}

	stored := make([]durable.Attachment, len(attachments))
	for i, a := range attachments {
		stored[i] = durable.Attachment{Name: paths[i], Data: a.Data}
	}

	return c.durable.Enqueue(ctx, durable.Mutation{
		TempID:      tempID,
		Kind:        durable.KindCreateVisit,
		Payload:     payload,
		Attachments: stored,
	})
}

// uploadAttachments stores each attachment under its pre-computed path,
// returning the paths uploaded so far when one fails.
func (c *client) uploadAttachments(ctx context.Context, paths []string, attachments []Attachment) ([]string, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	if c.blobs == nil {
		return nil, errors.NewStorageError("upload", paths[0], errors.New("no attachment store configured"))
	}

	var uploaded []string
	for i, a := range attachments {
		if err := c.blobs.Store(ctx, paths[i], bytes.NewReader(a.Data), int64(len(a.Data))); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, paths[i])
	}
	return uploaded, nil
}

// removeBlobs best-effort deletes already-uploaded attachments after a failed
// mutation, so an aborted visit does not strand objects in storage.
func (c *client) removeBlobs(ctx context.Context, paths []string) {
	if len(paths) == 0 || c.blobs == nil {
		return
	}
	if err := c.blobs.Remove(ctx, paths); err != nil {
		logging.Warn().Err(err).Int("count", len(paths)).Msg("Removing orphaned attachments failed")
	}
}

func (c *client) revert() {
	if err := c.coordinator.Revert(); err != nil {
		logging.Warn().Err(err).Msg("Reverting optimistic mutation failed")
	}
}

// confirmVisit rewrites the tentative place with the server-assigned record
// id: the review under tempID gets its permanent id and the temp id is
// cleared.
func confirmVisit(tentative *places.Place, tempID string, recordID int64) *places.Place {
	confirmed := tentative.Copy()
	id := recordID
	confirmed.InternalID = &id
	for i := range confirmed.Reviews {
		if confirmed.Reviews[i].TempID == tempID {
			confirmed.Reviews[i].ID = strconv.FormatInt(recordID, 10)
			confirmed.Reviews[i].TempID = ""
		}
	}
	return confirmed
}

// UpdateReview patches a confirmed review locally and server-side. Not
// queueable: offline or on any server failure the local change is rolled
// back and the error surfaced.
func (c *client) UpdateReview(ctx context.Context, reviewID string, patch places.ReviewPatch) error {
	_, rev, ok := c.places.FindReview(reviewID)
	if !ok {
		return errors.ErrNotFound
	}
	if rev.ID == "" {
		// Still tentative; it has no server record to patch yet.
		return errors.ErrMutationPending
	}
	recordID, err := strconv.ParseInt(rev.ID, 10, 64)
	if err != nil {
		return errors.NewValidationError("review_id", rev.ID, "not a server record id")
	}

	err = c.coordinator.Begin(func() error {
		return c.places.UpdateReview(reviewID, patch)
	}, c.places)
	if err != nil {
		return err
	}

	if c.remote == nil || !c.Online() {
		c.revert()
		return errors.ErrOffline
	}

	if _, err := c.remote.UpdateRecord(ctx, recordID, reviewPatchWire(patch)); err != nil {
		c.revert()
		return err
	}

	if err := c.coordinator.Confirm("", nil); err != nil {
		logging.Warn().Err(err).Msg("Confirming review update failed")
	}
	c.saveQuiet(ctx)
	return nil
}

// DeleteReview removes a confirmed review locally and server-side. Not
// queueable; same rollback semantics as UpdateReview.
func (c *client) DeleteReview(ctx context.Context, reviewID string) error {
	_, rev, ok := c.places.FindReview(reviewID)
	if !ok {
		return errors.ErrNotFound
	}
	if rev.ID == "" {
		return errors.ErrMutationPending
	}
	recordID, err := strconv.ParseInt(rev.ID, 10, 64)
	if err != nil {
		return errors.NewValidationError("review_id", rev.ID, "not a server record id")
	}

	err = c.coordinator.Begin(func() error {
		return c.places.RemoveReview(reviewID)
	}, c.places)
	if err != nil {
		return err
	}

	if c.remote == nil || !c.Online() {
		c.revert()
		return errors.ErrOffline
	}

	if err := c.remote.DeleteRecord(ctx, recordID); err != nil {
		c.revert()
		return err
	}

	if err := c.coordinator.Confirm("", nil); err != nil {
		logging.Warn().Err(err).Msg("Confirming review deletion failed")
	}

	c.removeBlobs(ctx, rev.Photos)
	c.saveQuiet(ctx)
	return nil
}

// SetFlag sets one relationship flag optimistically and pushes it to the
// server. Clearing the visited flag also clears reviews locally, mirroring
// what the server reports once the flag is gone. Not queueable.
func (c *client) SetFlag(ctx context.Context, externalID, flag string, value bool) error {
	p, ok := c.places.Get(externalID)
	if !ok {
		return errors.ErrNotFound
	}

	updated := p.Copy()
	switch flag {
	case remote.FlagVisited:
		updated.Visited = value
		if !value {
			updated.Reviews = nil
		}
	case remote.FlagWishlisted:
		updated.Wishlisted = value
	case remote.FlagFavorited:
		updated.Favorited = value
	default:
		return errors.NewValidationError("flag", flag, "unknown relationship flag")
	}
	updated.UpdatedAt = time.Now()

	err := c.coordinator.Begin(func() error {
		return c.places.Insert(updated)
	}, c.places)
	if err != nil {
		return err
	}

	if c.remote == nil || !c.Online() {
		c.revert()
		return errors.ErrOffline
	}

	entity := remote.EntityPayload{
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Address:    p.Address,
		Lat:        p.Coordinates.Lat,
		Lng:        p.Coordinates.Lng,
	}
	if err := c.remote.SetFlag(ctx, entity, flag, value); err != nil {
		c.revert()
		return err
	}

	if err := c.coordinator.Confirm("", nil); err != nil {
		logging.Warn().Err(err).Msg("Confirming flag change failed")
	}
	c.saveQuiet(ctx)
	return nil
}

// reviewPatchWire converts a review patch into the sparse server wire form.
func reviewPatchWire(patch places.ReviewPatch) remote.Patch {
	wire := remote.Patch{}
	if patch.Date != nil {
		wire["date"] = patch.Date.Format(time.RFC3339)
	}
	if patch.Rating != nil {
		wire["rating"] = *patch.Rating
	}
	if patch.Text != nil {
		wire["text"] = *patch.Text
	}
	if patch.Photos != nil {
		wire["photos"] = patch.Photos
	}
	return wire
}
