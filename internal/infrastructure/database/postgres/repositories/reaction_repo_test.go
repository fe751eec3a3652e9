package repositories

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const (
	testID    = "6f1c2f8e-8b7a-4d55-9a57-0c4c1d7a2f10"
	testLong  = "Long-RInChIKey=SA-FUHFF-LSJNEDDHJSOEEK-ZNOKBSRPBBIZHK-WRFKFRSTWJVSHV-NUHFF-ZZZ"
	testShort = "Short-RInChIKey=SA-FUHFF-LSJNEDDHJS-ZNOKBSRPBB-WRFKFRSTWJ-NUHFF-NUHFF-NUHFF-ZZZ"
	testWeb   = "Web-RInChIKey=LSJNEDDHJSOEEKZNO-NUHFFFADPSCTJSA"
)

var reactionCols = []string{
	"id", "rinchi", "rauxinfo", "long_key", "short_key", "web_key", "direction",
	"nostruct_r", "nostruct_p", "nostruct_a", "source", "created_at", "updated_at",
}

type ReactionRepoSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	repo reaction.Repository
	now  time.Time
}

func TestReactionRepoSuite(t *testing.T) {
	suite.Run(t, new(ReactionRepoSuite))
}

func (s *ReactionRepoSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.mock = mock
	s.repo = NewReactionRepository(postgres.NewConnectionWithDB(db, nil), nil, nil)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ReactionRepoSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepoSuite) record() *reaction.Record {
	return &reaction.Record{
		RInChI:       "RInChI=1.00.1S/CH4S/c1-2/h2H,1H3<>H3NO/c1-2/h2H,1H2/d+",
		RAuxInfo:     "RAuxInfo=1.00.1/0/N:1,2/rA:2nCS/rB:s1;/rC:;;<>0/N:1,2/rA:2nNO/rB:s1;/rC:;;",
		LongKey:      testLong,
		ShortKey:     testShort,
		WebKey:       testWeb,
		Direction:    "+",
		Placeholders: [reaction.NumGroups]int{0, 1, 0},
		Components: []reaction.RecordComponent{
			{Role: reaction.Reactants, Position: 0, InChI: "InChI=1S/CH4S/c1-2/h2H,1H3", InChIKey: "LSCDOWQGGHZTEV-UHFFFAOYSA-N"},
			{Role: reaction.Products, Position: 0, InChI: "InChI=1S/H3NO/c1-2/h2H,1H2", InChIKey: "AVXURJPOCDRRFD-UHFFFAOYSA-N"},
		},
		Source: "upload.rxn",
	}
}

func (s *ReactionRepoSuite) rows() *sqlmock.Rows {
	return sqlmock.NewRows(reactionCols).AddRow(
		testID, "RInChI=1.00.1S/CH4S/c1-2/h2H,1H3<>H3NO/c1-2/h2H,1H2/d+", "", testLong, testShort, testWeb, "+",
		0, 1, 0, "upload.rxn", s.now, s.now,
	)
}

func (s *ReactionRepoSuite) TestSave() {
	rec := s.record()
	rec.ID = testID

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO reactions`).
		WithArgs(testID, rec.RInChI, rec.RAuxInfo, testLong, testShort, testWeb, "+", 0, 1, 0, "upload.rxn").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(testID, s.now, s.now))
	s.mock.ExpectExec(`DELETE FROM reaction_components WHERE reaction_id = \$1`).
		WithArgs(testID).WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reaction_components (reaction_id, role, position, inchi, inchikey) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)`)).
		WithArgs(testID, 0, 0, rec.Components[0].InChI, rec.Components[0].InChIKey,
			testID, 1, 0, rec.Components[1].InChI, rec.Components[1].InChIKey).
		WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	s.Require().NoError(s.repo.Save(context.Background(), rec))
	s.Equal(s.now, rec.CreatedAt)
}

func (s *ReactionRepoSuite) TestSave_ExistingRInChIKeepsID() {
	rec := s.record()
	rec.Components = nil

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO reactions .* ON CONFLICT \(rinchi\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(testID, s.now, s.now))
	s.mock.ExpectExec(`DELETE FROM reaction_components`).WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	s.Require().NoError(s.repo.Save(context.Background(), rec))
	s.Equal(testID, rec.ID)
}

func (s *ReactionRepoSuite) TestSave_LongKeyConflictRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO reactions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_reactions_long_key"})
	s.mock.ExpectRollback()

	err := s.repo.Save(context.Background(), s.record())
	s.Require().Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeConflict))
	s.Contains(err.Error(), "idx_reactions_long_key")
}

func (s *ReactionRepoSuite) TestSave_InvalidID() {
	rec := s.record()
	rec.ID = "not-a-uuid"
	err := s.repo.Save(context.Background(), rec)
	s.True(errors.IsCode(err, errors.ErrCodeBadRequest))
}

func (s *ReactionRepoSuite) TestFindByID() {
	s.mock.ExpectQuery(`SELECT .* FROM reactions WHERE id = \$1`).WithArgs(testID).WillReturnRows(s.rows())
	s.mock.ExpectQuery(`FROM reaction_components`).WithArgs(testID).WillReturnRows(
		sqlmock.NewRows([]string{"role", "position", "inchi", "inchikey"}).
			AddRow(0, 0, "InChI=1S/CH4S/c1-2/h2H,1H3", "LSCDOWQGGHZTEV-UHFFFAOYSA-N").
			AddRow(1, 0, "InChI=1S/H3NO/c1-2/h2H,1H2", "AVXURJPOCDRRFD-UHFFFAOYSA-N"))

	rec, err := s.repo.FindByID(context.Background(), testID)
	s.Require().NoError(err)
	s.Equal(testID, rec.ID)
	s.Equal([reaction.NumGroups]int{0, 1, 0}, rec.Placeholders)
	s.Require().Len(rec.Components, 2)
	s.Equal(reaction.Products, rec.Components[1].Role)
	s.Equal("upload.rxn", rec.Source)
}

func (s *ReactionRepoSuite) TestFindByID_NotFound() {
	s.mock.ExpectQuery(`FROM reactions WHERE id`).WithArgs(testID).WillReturnRows(sqlmock.NewRows(reactionCols))

	_, err := s.repo.FindByID(context.Background(), testID)
	s.True(errors.IsNotFound(err))
	s.True(errors.IsCode(err, errors.ErrCodeReactionNotFound))
}

func (s *ReactionRepoSuite) TestFindByKey() {
	tests := []struct {
		key    string
		column string
		arg    string
	}{
		{testLong, "long_key", testLong},
		{testShort, "short_key", testShort},
		{testWeb, "web_key", testWeb},
		{"LSJNEDDHJSOEEKZNO-NUHFFFADPSCTJSA", "web_key", testWeb},
	}
	for _, tt := range tests {
		s.mock.ExpectQuery(`FROM reactions WHERE ` + tt.column + ` = \$1`).WithArgs(tt.arg).WillReturnRows(s.rows())
		s.mock.ExpectQuery(`FROM reaction_components`).WillReturnRows(sqlmock.NewRows([]string{"role", "position", "inchi", "inchikey"}))

		rec, err := s.repo.FindByKey(context.Background(), tt.key)
		s.Require().NoError(err, tt.key)
		s.Equal(testID, rec.ID)
	}

	_, err := s.repo.FindByKey(context.Background(), "InChIKey=LSCDOWQGGHZTEV-UHFFFAOYSA-N")
	s.True(errors.IsCode(err, errors.ErrCodeBadRequest))
}

func (s *ReactionRepoSuite) TestFindByComponent() {
	s.mock.ExpectQuery(`FROM reactions r\s+WHERE EXISTS`).
		WithArgs("LSCDOWQGGHZTEV-UHFFFAOYSA-N", 10).
		WillReturnRows(s.rows())

	recs, err := s.repo.FindByComponent(context.Background(), "LSCDOWQGGHZTEV-UHFFFAOYSA-N", 10)
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal(testLong, recs[0].LongKey)
}

func (s *ReactionRepoSuite) TestList() {
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reactions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	s.mock.ExpectQuery(`ORDER BY created_at DESC, id\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(maxListLimit, 5).
		WillReturnRows(s.rows())

	recs, total, err := s.repo.List(context.Background(), 5, 0)
	s.Require().NoError(err)
	s.Equal(int64(7), total)
	s.Len(recs, 1)
}

func (s *ReactionRepoSuite) TestList_QueryError() {
	s.mock.ExpectQuery(`SELECT COUNT`).WillReturnError(stderrors.New("connection reset"))

	_, _, err := s.repo.List(context.Background(), 0, 10)
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *ReactionRepoSuite) TestDelete() {
	s.mock.ExpectExec(`DELETE FROM reactions WHERE id = \$1`).WithArgs(testID).WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.repo.Delete(context.Background(), testID))

	s.mock.ExpectExec(`DELETE FROM reactions`).WithArgs(testID).WillReturnResult(sqlmock.NewResult(0, 0))
	s.True(errors.IsNotFound(s.repo.Delete(context.Background(), testID)))
}

func TestPrefixed(t *testing.T) {
	s := prefixed("r.", "id, rinchi,\n\tsource")
	if s != "r.id, r.rinchi, r.source" {
		t.Fatalf("prefixed = %q", s)
	}
}
