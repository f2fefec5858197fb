package transfer_test

import (
	"testing"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/transfer"
	"github.com/dalemusser/lodgehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newProtocol(db *mongo.Database) *transfer.Protocol {
	canonical := identitystore.New(db)
	legacy := legacystore.New(db)
	return transfer.New(
		directory.New(canonical, legacy),
		canonical,
		legacy,
		lodgestore.New(db),
		zap.NewNop())
}

// A completed transfer is visible in BOTH legacy representations and in the
// canonical store.
func TestTransfer_UpdatesBothRepresentations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "Transfer Lodge")
	holder := fx.CreateIdentity(ctx, "Holder", "holder@example.com", roles.LodgeAdmin, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "Candidate", "candidate@example.com", roles.Member, &lodge.ID)

	res, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: candidate.ID,
		ScopeID:     lodge.ID,
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Partial {
		t.Fatalf("unexpected partial transfer: %s", res.Warning)
	}
	if res.Tier != roles.LodgeAdmin {
		t.Errorf("tier: got %q, want %q", res.Tier, roles.LodgeAdmin)
	}
	if res.TransferID == "" {
		t.Error("transfer id should be set")
	}

	stores := legacystore.New(db)
	for name, email := range map[string]string{"holder": "holder@example.com", "candidate": "candidate@example.com"} {
		want := roles.Member
		if name == "candidate" {
			want = roles.LodgeAdmin
		}
		a, err := stores.Accounts.GetByEmail(ctx, email)
		if err != nil {
			t.Fatalf("account %s: %v", name, err)
		}
		if a.Role != want {
			t.Errorf("%s account role: got %q, want %q", name, a.Role, want)
		}
		p, err := stores.Profiles.GetByEmail(ctx, email)
		if err != nil {
			t.Fatalf("profile %s: %v", name, err)
		}
		if p.Role != want {
			t.Errorf("%s profile role: got %q, want %q", name, p.Role, want)
		}
	}

	canonical := identitystore.New(db)
	gotHolder, err := canonical.GetByID(ctx, holder.ID)
	if err != nil {
		t.Fatalf("canonical holder: %v", err)
	}
	if gotHolder.Role != roles.Member {
		t.Errorf("canonical holder role: got %q, want %q", gotHolder.Role, roles.Member)
	}
	gotCandidate, err := canonical.GetByID(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("canonical candidate: %v", err)
	}
	if gotCandidate.Role != roles.LodgeAdmin {
		t.Errorf("canonical candidate role: got %q, want %q", gotCandidate.Role, roles.LodgeAdmin)
	}
}

// The validation phase writes nothing when it refuses.
func TestTransfer_CandidateAlreadyHoldsTier(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "L")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.LodgeAdmin, &lodge.ID)
	peer := fx.CreateIdentity(ctx, "P", "p@example.com", roles.LodgeAdmin, &lodge.ID)

	_, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: peer.ID,
		ScopeID:     lodge.ID,
	})
	if faults.KindOf(err) != faults.Conflict {
		t.Errorf("got %v, want a Conflict fault", err)
	}

	// No legacy records should have been synthesized by a refused transfer.
	if n, _ := legacystore.New(db).Accounts.Count(ctx); n != 0 {
		t.Errorf("legacy accounts after refusal: got %d, want 0", n)
	}
}

func TestTransfer_RequesterMustOutrankTier(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "L")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.DistrictAdmin, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "C", "c@example.com", roles.Member, &lodge.ID)
	requester := fx.CreateIdentity(ctx, "R", "r@example.com", roles.LodgeAdmin, &lodge.ID)

	_, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &requester,
		HolderID:    holder.ID,
		CandidateID: candidate.ID,
		ScopeID:     lodge.ID,
	})
	if faults.KindOf(err) != faults.Authorization {
		t.Errorf("got %v, want an Authorization fault", err)
	}
}

func TestTransfer_MemberHasNothingToTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "L")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.Member, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "C", "c@example.com", roles.Member, &lodge.ID)

	_, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: candidate.ID,
		ScopeID:     lodge.ID,
	})
	if faults.KindOf(err) != faults.Validation {
		t.Errorf("got %v, want a Validation fault", err)
	}
}

func TestTransfer_UnknownScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "L")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.LodgeAdmin, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "C", "c@example.com", roles.Member, &lodge.ID)

	_, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: candidate.ID,
		ScopeID:     primitive.NewObjectID(),
	})
	if faults.KindOf(err) != faults.NotFound {
		t.Errorf("got %v, want a NotFound fault", err)
	}
}

// A candidate outside the target scope is auto-repaired into it rather than
// refused.
func TestTransfer_RepairsCandidateMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "Target")
	elsewhere := fx.CreateLodge(ctx, "Elsewhere")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.LodgeAdmin, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "C", "c@example.com", roles.Member, &elsewhere.ID)

	res, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: candidate.ID,
		ScopeID:     lodge.ID,
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.Repaired {
		t.Error("the membership repair should be reported")
	}

	got, err := identitystore.New(db).GetByID(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PrimaryLodge == nil || *got.PrimaryLodge != lodge.ID {
		t.Error("the candidate's primary lodge should point at the target scope")
	}
}

// Identities with no legacy records get both representations synthesized so
// the Apply phase has something to write.
func TestTransfer_SynthesizesMissingLegacyRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "L")
	holder := fx.CreateIdentity(ctx, "H", "h@example.com", roles.LodgeAdmin, &lodge.ID)
	candidate := fx.CreateIdentity(ctx, "C", "c@example.com", roles.Member, &lodge.ID)

	if _, err := newProtocol(db).Transfer(ctx, transfer.Request{
		Requester:   &holder,
		CandidateID: candidate.ID,
		ScopeID:     lodge.ID,
	}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	stores := legacystore.New(db)
	na, _ := stores.Accounts.Count(ctx)
	np, _ := stores.Profiles.Count(ctx)
	if na != 2 || np != 2 {
		t.Errorf("synthesized records: got %d accounts / %d profiles, want 2/2", na, np)
	}
}
