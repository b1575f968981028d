package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"kitties/internal/admin"
	jwttoken "kitties/internal/jwt_token"
	"kitties/internal/kitties/genome"
	kittyhandler "kitties/internal/kitties/handler"
	"kitties/internal/kitties/service"
	"kitties/internal/kitties/store/memory"
	ledgerhandler "kitties/internal/ledger/handler"
	ledgerservice "kitties/internal/ledger/service"
	ledgermemory "kitties/internal/ledger/store/memory"
	id "kitties/pkg/domain"
	adminmw "kitties/pkg/platform/middleware/admin"
	authmw "kitties/pkg/platform/middleware/auth"
)

const (
	testSigningKey = "kittyctl-test-key"
	testIssuer     = "kitties"
	testAudience   = "kitties-api"
	testAdminToken = "kittyctl-admin"
)

type KittyctlSuite struct {
	suite.Suite
	server *httptest.Server
	ledger *ledgerservice.Service
	alice  id.AccountID
	bob    id.AccountID
}

func TestKittyctlSuite(t *testing.T) {
	suite.Run(t, new(KittyctlSuite))
}

func (s *KittyctlSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.ledger, err = ledgerservice.New(ledgermemory.New(), ledgerservice.WithLogger(logger))
	s.Require().NoError(err)

	s.alice = id.NewAccountID()
	s.bob = id.NewAccountID()
	_, err = s.ledger.Deposit(context.Background(), s.alice, 5000)
	s.Require().NoError(err)
	_, err = s.ledger.Deposit(context.Background(), s.bob, 5000)
	s.Require().NoError(err)

	svc, err := service.New(memory.New(8), s.ledger, genome.NewDeriver(genome.FixedSeed("kittyctl")),
		service.WithLogger(logger),
	)
	s.Require().NoError(err)

	jwtService := jwttoken.NewJWTService(testSigningKey, testIssuer, testAudience)
	r := chi.NewRouter()
	kittyhandler.New(svc, logger, authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), logger)).Register(r)
	ledgerhandler.New(s.ledger, nil, logger).Register(r)
	admin.New(s.ledger, logger, adminmw.RequireAdminToken(testAdminToken, logger)).Register(r)
	s.server = httptest.NewServer(r)

	s.T().Setenv("KITTYCTL_SIGNING_KEY", testSigningKey)
	s.T().Setenv("KITTYCTL_SERVER", s.server.URL)
}

func (s *KittyctlSuite) TearDownTest() {
	s.server.Close()
}

func (s *KittyctlSuite) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (s *KittyctlSuite) tokenFor(account id.AccountID) string {
	out, err := s.run("token", account.String())
	s.Require().NoError(err)
	return string(bytes.TrimSpace([]byte(out)))
}

func (s *KittyctlSuite) mint(token string) kittyhandler.KittyResponse {
	out, err := s.run("--token", token, "mint")
	s.Require().NoError(err)
	var resp kittyhandler.KittyResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &resp))
	return resp
}

func (s *KittyctlSuite) TestToken() {
	s.Run("issues a token the server accepts", func() {
		token := s.tokenFor(s.alice)
		accountID, err := jwttoken.NewJWTService(testSigningKey, testIssuer, testAudience).ExtractAccountID(token)
		s.Require().NoError(err)
		s.Equal(s.alice, accountID)
	})

	s.Run("rejects a malformed account", func() {
		_, err := s.run("token", "not-a-uuid")
		s.Error(err)
	})
}

func (s *KittyctlSuite) TestMintAndShow() {
	token := s.tokenFor(s.alice)
	minted := s.mint(token)
	s.Equal(s.alice, minted.Owner)

	out, err := s.run("show", strconv.FormatUint(uint64(minted.ID), 10))
	s.Require().NoError(err)
	var shown kittyhandler.KittyResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &shown))
	s.Equal(minted, shown)
}

func (s *KittyctlSuite) TestMintWithoutToken() {
	_, err := s.run("mint")
	var apiErr *apiError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(401, apiErr.Status)
	s.Equal("unauthorized", apiErr.Code)
}

func (s *KittyctlSuite) TestBreedTransferInventoryBalance() {
	token := s.tokenFor(s.alice)
	p1 := s.mint(token)
	p2 := s.mint(token)

	out, err := s.run("--token", token, "breed", p1.ID.String(), p2.ID.String())
	s.Require().NoError(err)
	var child kittyhandler.KittyResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &child))
	s.Equal(p2.ID+1, child.ID)

	_, err = s.run("--token", token, "transfer", child.ID.String(), s.bob.String())
	s.Require().NoError(err)

	out, err = s.run("inventory", s.bob.String())
	s.Require().NoError(err)
	var inv kittyhandler.InventoryResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &inv))
	s.Require().Len(inv.Kitties, 1)
	s.Equal(child.ID, inv.Kitties[0].ID)

	out, err = s.run("balance", s.alice.String())
	s.Require().NoError(err)
	var bal ledgerhandler.BalanceResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &bal))
	s.Equal(uint64(2*service.DefaultReserveAmount), bal.Reserved)
	s.Equal(uint64(5000-2*service.DefaultReserveAmount), bal.Free)
}

func (s *KittyctlSuite) TestServiceErrorsSurface() {
	token := s.tokenFor(s.alice)
	kitty := s.mint(token)

	_, err := s.run("--token", token, "breed", kitty.ID.String(), kitty.ID.String())
	var apiErr *apiError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("same_kitty_id", apiErr.Code)

	_, err = s.run("--token", s.tokenFor(s.bob), "transfer", kitty.ID.String(), s.bob.String())
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("not_owner", apiErr.Code)
}

func (s *KittyctlSuite) TestConfigFile() {
	path := filepath.Join(s.T().TempDir(), "kittyctl.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("server: "+s.server.URL+"\n"), 0o600))
	s.T().Setenv("KITTYCTL_SERVER", "http://127.0.0.1:1")

	// env overrides the file, flags override env
	_, err := s.run("--config", path, "balance", s.alice.String())
	s.Error(err)
	_, err = s.run("--config", path, "--server", s.server.URL, "balance", s.alice.String())
	s.NoError(err)
}

func (s *KittyctlSuite) TestDeposit() {
	carol := id.NewAccountID()

	_, err := s.run("deposit", carol.String(), "250")
	var apiErr *apiError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("unauthorized", apiErr.Code)

	out, err := s.run("deposit", "--admin-token", testAdminToken, carol.String(), "250")
	s.Require().NoError(err)
	var resp admin.DepositResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &resp))
	s.Equal(carol, resp.Account)
	s.Equal(uint64(250), resp.Free)

	_, err = s.run("deposit", "--admin-token", testAdminToken, carol.String(), "lots")
	s.Error(err)
}
