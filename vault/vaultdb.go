package vault

import (
	"database/sql"

	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	queryGetVault   = `SELECT` + vaultParamList + `FROM vault WHERE id = ?`
	queryListVaults = `SELECT` + vaultParamList + `FROM vault ORDER BY createdAt, id`
	queryInsert     = `INSERT INTO vault (` + vaultParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	queryUpdate     = `UPDATE vault SET collateral = ?, issued = ?, toBeIssued = ?, toBeRedeemed = ? WHERE id = ?`
)

// VaultDB is the keyed store of vaults. Only Registry writes to it.
type VaultDB struct {
	stmtCache *database.StmtCache
}

func NewVaultDB(db *sql.DB) (*VaultDB, error) {
	if _, err := db.Exec(vaultTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryGetVault, queryListVaults, queryInsert, queryUpdate); err != nil {
		return nil, err
	}
	return &VaultDB{stmtCache: sc}, nil
}

func (vdb *VaultDB) Close() {
	vdb.stmtCache.Clear()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVault(row scanner) (*Vault, error) {
	var s sqlVault
	if err := row.Scan(&s.ID, &s.PubKey, &s.Collateral, &s.Issued, &s.ToBeIssued, &s.ToBeRedeemed, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s.decode(), nil
}

func (vdb *VaultDB) Get(b *state.Batch, id ethcommon.Address) (*Vault, bool, error) {
	stmt, err := vdb.stmtCache.Tx(b.Tx(), queryGetVault)
	if err != nil {
		return nil, false, err
	}

	v, err := scanVault(stmt.QueryRow(ethcommon.Bytes2Hex(id[:])))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (vdb *VaultDB) List(b *state.Batch) ([]*Vault, error) {
	stmt, err := vdb.stmtCache.Tx(b.Tx(), queryListVaults)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []*Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, v)
	}
	return vaults, rows.Err()
}

func (vdb *VaultDB) Insert(b *state.Batch, v *Vault) error {
	stmt, err := vdb.stmtCache.Tx(b.Tx(), queryInsert)
	if err != nil {
		return err
	}

	s := (&sqlVault{}).encode(v)
	_, err = stmt.Exec(s.ID, s.PubKey, s.Collateral, s.Issued, s.ToBeIssued, s.ToBeRedeemed, s.CreatedAt)
	return err
}

func (vdb *VaultDB) Update(b *state.Batch, v *Vault) error {
	stmt, err := vdb.stmtCache.Tx(b.Tx(), queryUpdate)
	if err != nil {
		return err
	}

	s := (&sqlVault{}).encode(v)
	_, err = stmt.Exec(s.Collateral, s.Issued, s.ToBeIssued, s.ToBeRedeemed, s.ID)
	return err
}
