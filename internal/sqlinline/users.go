package sqlinline

const QInsertUser = `--sql d63c8423-1d7f-40e5-ac21-4eba16795ba7
insert into users (id, email, password_hash, role, plan, created_at, updated_at)
values (gen_random_uuid(), lower($1::text), $2::text, 'user', 'free', now(), now())
returning id, email, role, plan, created_at;
`

const QSelectUserByEmail = `--sql 21784d97-a3f8-4267-964f-7732b37cb2ce
select id, email, password_hash, role, plan, created_at, updated_at
from users
where email = lower($1::text)
limit 1;
`

const QSelectUserByID = `--sql a5e0d9ff-7ffe-4460-b9e0-7d5d384d1fd0
select id, email, password_hash, role, plan, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QUpdateUserPlan = `--sql 17180c36-aeb6-4614-86cf-730e7121b1be
update users
set plan = $2::text,
    updated_at = now()
where id = $1::uuid
returning id, email, plan;
`

const QUpdateUserPlanByEmail = `--sql 25d0ec03-b117-4581-bf9e-a01d6e345c6f
update users
set plan = $2::text,
    updated_at = now()
where email = lower($1::text)
returning id, email, plan;
`
