package kernel

import "strconv"

type StoreID int64

func (id StoreID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id StoreID) IsZero() bool   { return id == 0 }

type LanguageID int64

func (id LanguageID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id LanguageID) IsZero() bool   { return id == 0 }

type TemplateID int64

func (id TemplateID) String() string { return strconv.FormatInt(int64(id), 10) }

type AccountID int64

func (id AccountID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id AccountID) IsZero() bool   { return id == 0 }

// UserID identifies the caller of the admin API (the JWT subject).
type UserID string

func (u UserID) String() string { return string(u) }
func (u UserID) IsEmpty() bool  { return u == "" }
