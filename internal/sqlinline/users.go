package sqlinline

const QGetUser = `--sql 7e8c850a-36db-4306-90a9-cc31e2fbdffd
select id, email, display_name, role, verified, created_at, updated_at
from users
where id = $1::uuid;
`

// QUpsertUserByEmail provisions or updates an account by email. Identity
// lives outside the platform, so this is the only write path for users.
const QUpsertUserByEmail = `--sql 37638506-1dbb-4d76-ba3b-ebf77265f1da
insert into users (id, email, display_name, role, verified, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::boolean, now(), now())
on conflict (email) do update set
    display_name = case when excluded.display_name = '' then users.display_name else excluded.display_name end,
    role = excluded.role,
    verified = excluded.verified,
    updated_at = now()
returning id, email, display_name, role, verified;
`
